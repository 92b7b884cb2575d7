package ml

// Regressor predicts a day-of-year from an encoded feature vector
type Regressor interface {
	Predict(x []float64) float64
}

// LinearRegressor is a plain linear model over the encoded vector.
// Coefficients beyond the vector length are ignored, shorter vectors
// contribute only the overlapping terms.
type LinearRegressor struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// Predict implements Regressor
func (r *LinearRegressor) Predict(x []float64) float64 {
	y := r.Intercept
	n := len(r.Coefficients)
	if len(x) < n {
		n = len(x)
	}
	for i := 0; i < n; i++ {
		y += r.Coefficients[i] * x[i]
	}
	return y
}

// TreeNode is one node of a serialized regression tree. Leaf nodes have
// Left == -1 and carry Value; internal nodes route on Feature/Threshold.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a regression tree as a node array rooted at index 0
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Predict walks the tree for one encoded vector
func (t *Tree) Predict(x []float64) float64 {
	idx := 0
	for idx >= 0 && idx < len(t.Nodes) {
		node := t.Nodes[idx]
		if node.Left < 0 {
			return node.Value
		}
		if node.Feature < len(x) && x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0
}

// ForestRegressor averages an ensemble of regression trees
type ForestRegressor struct {
	Trees []Tree `json:"trees"`
}

// Predict implements Regressor
func (f *ForestRegressor) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}
