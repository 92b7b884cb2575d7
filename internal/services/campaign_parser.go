package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"siembra-platform/internal/models"
	"siembra-platform/pkg/logging"
)

var (
	campaignPattern = regexp.MustCompile(`^(\d{4})/(\d{4})$`)
	yearPattern     = regexp.MustCompile(`^(19|20)\d{2}$`)
)

// CampaignParser resolves campaign strings like "2024/2025" to the target
// planting year.
type CampaignParser struct {
	logger *logging.StructuredLogger
}

// NewCampaignParser creates a campaign parser.
func NewCampaignParser(logger *logging.StructuredLogger) *CampaignParser {
	return &CampaignParser{logger: logger}
}

// TargetYear returns the planting year of a campaign: the second year of a
// "YYYY/YYYY" pair. Campaigns whose years are not consecutive are accepted
// with a warning.
func (p *CampaignParser) TargetYear(ctx context.Context, campana string) (int, error) {
	campana = strings.TrimSpace(campana)
	if campana == "" {
		return 0, &models.ValidationError{
			Field:   "campana",
			Message: "el campo 'campana' es requerido y no puede estar vacío",
		}
	}

	m := campaignPattern.FindStringSubmatch(campana)
	if m == nil {
		return 0, &models.ValidationError{
			Field:   "campana",
			Value:   campana,
			Message: "el campo 'campana' debe tener formato AAAA/AAAA",
		}
	}
	if !yearPattern.MatchString(m[2]) {
		return 0, &models.ValidationError{
			Field:   "campana",
			Value:   campana,
			Message: "el segundo año de la campaña es inválido",
		}
	}

	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	if second != first+1 {
		p.logger.Warn(ctx, "[CAMPAIGN] Campaign years are not consecutive", logging.Fields{
			"campana": campana,
		})
	}
	return second, nil
}
