package httpclient

import (
	"context"
)

// MethodPropfind is the WebDAV property query verb.
const MethodPropfind = "PROPFIND"

// DoPROPFIND sends a PROPFIND and returns the multistatus body. Any status
// other than 207 is a *syncerr.StatusError.
func (c *Client) DoPROPFIND(ctx context.Context, url string, depth int, body []byte, creds Credentials) ([]byte, error) {
	c.logger.Debug("starting PROPFIND request", "url", url, "depth", depth)

	resp, err := c.Do(ctx, MethodPropfind, url, depth, body, creds)
	if err != nil {
		return nil, err
	}
	if err := expectMultiStatus(resp); err != nil {
		c.logger.Debug("unexpected response status", "url", url, "status_code", resp.StatusCode)
		return nil, err
	}

	c.logger.Debug("PROPFIND request complete", "url", url, "bytes", len(resp.Body))
	return resp.Body, nil
}
