package models

// CacheInvalidateRequest is the body for POST /v1/admin/cache/invalidate.
type CacheInvalidateRequest struct {
	// Prefix selects which cached results to drop. An empty prefix drops
	// everything.
	Prefix string `json:"prefix"`
}

// CacheInvalidateResponse reports how many cached entries were removed.
type CacheInvalidateResponse struct {
	Prefix  string `json:"prefix"`
	Removed int    `json:"removed"`
}
