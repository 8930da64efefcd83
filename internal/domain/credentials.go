package domain

// ShopCredentials hold everything needed to sign partner API calls for one
// shop. Sourced from the credential store once per run and never written back.
type ShopCredentials struct {
	ShopID      int64
	AccessToken string
	PartnerID   int64
	PartnerKey  string
}

// Valid reports whether the credentials are complete enough to sign a request.
func (c *ShopCredentials) Valid() bool {
	return c != nil && c.AccessToken != "" && c.PartnerID != 0 && c.PartnerKey != ""
}
