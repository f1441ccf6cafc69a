package dashboard

import "net/url"

// ShareLink returns the public preview URL for an asset.
func (c *Controller) ShareLink(id string) string {
	return c.cfg.PreviewBaseURL + "?coin=" + url.QueryEscape(id)
}
