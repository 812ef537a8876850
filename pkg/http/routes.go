package http

const (
	Ping    = "Ping"
	Version = "Version"

	ListTargets = "ListTargets"
	GetCatalog  = "GetCatalog"
	GetProduct  = "GetProduct"
	Refresh     = "Refresh"
)
