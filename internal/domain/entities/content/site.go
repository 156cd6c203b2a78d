package content

// Site scopes pages by host.
type Site struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Host      string `json:"host"`
	IsDefault bool   `json:"isDefault"`
	Enabled   bool   `json:"enabled"`
}
