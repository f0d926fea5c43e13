package merchant

// Approval is the per-product approval state derived from destination
// statuses.
type Approval string

const (
	StatusApproved    Approval = "approved"
	StatusDisapproved Approval = "disapproved"
	StatusPending     Approval = "pending"
)

// DestinationStatus is the approval state of a product on one
// destination (Shopping ads, free listings, ...).
type DestinationStatus struct {
	Destination string `json:"destination"`
	Status      string `json:"status"`
}

// Issue is one item-level issue reported for a product.
type Issue struct {
	Code        string `json:"code"`
	Severity    string `json:"servability"`
	Resolution  string `json:"resolution"`
	Description string `json:"description"`
	Detail      string `json:"detail"`
}

// ProductStatus is the status record of one product in the feed.
type ProductStatus struct {
	ProductID           string              `json:"productId"`
	Title               string              `json:"title"`
	DestinationStatuses []DestinationStatus `json:"destinationStatuses"`
	ItemLevelIssues     []Issue             `json:"itemLevelIssues"`
}

// Classify folds a product's destination statuses into a single
// approval state. A disapproval on any destination wins, then a pending
// review, otherwise the product counts as approved.
func (s ProductStatus) Classify() Approval {
	pending := false
	for _, d := range s.DestinationStatuses {
		switch d.Status {
		case "disapproved":
			return StatusDisapproved
		case "pending":
			pending = true
		}
	}
	if pending {
		return StatusPending
	}
	return StatusApproved
}

// FeedSummary is an aggregate view over every product status in a
// merchant's feed.
type FeedSummary struct {
	TotalProducts int `json:"totalProducts"`
	Approved      int `json:"approved"`
	Disapproved   int `json:"disapproved"`
	Pending       int `json:"pending"`
	IssueCount    int `json:"issueCount"`
}
