package metrics

/*
Labels and so on for metrics used in the scraper.
*/

const (
	LabelMethod  = "method"
	LabelRoute   = "route"
	LabelSuccess = "success"

	// Labels for remote fetch metrics
	LabelRequestKind = "kind"
	LabelTarget      = "target"
)
