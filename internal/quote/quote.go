// Package quote compares a professional's quoted price with the job estimate.
package quote

// Tolerance is the factor over the estimate a quote may reach before it is
// flagged as expensive.
const Tolerance = 1.2

const (
	LabelApproved = "approved market price"
	LabelAbove    = "above average"
)

type Comparison struct {
	Estimate    float64 `json:"estimate"`
	Price       float64 `json:"price"`
	IsExpensive bool    `json:"is_expensive"`
	Label       string  `json:"label"`
}

// Compare flags price as expensive when it is strictly above estimate*Tolerance.
func Compare(estimate, price float64) Comparison {
	c := Comparison{Estimate: estimate, Price: price, Label: LabelApproved}
	if price > estimate*Tolerance {
		c.IsExpensive = true
		c.Label = LabelAbove
	}
	return c
}
