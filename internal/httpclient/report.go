package httpclient

import (
	"context"
)

// MethodReport is the WebDAV server-side query verb.
const MethodReport = "REPORT"

// DoREPORT sends a REPORT and returns the multistatus body. Any status
// other than 207 is a *syncerr.StatusError.
func (c *Client) DoREPORT(ctx context.Context, url string, depth int, body []byte, creds Credentials) ([]byte, error) {
	c.logger.Debug("starting REPORT request", "url", url, "depth", depth)

	resp, err := c.Do(ctx, MethodReport, url, depth, body, creds)
	if err != nil {
		c.logger.Debug("request failed", "url", url, "error", err)
		return nil, err
	}
	if err := expectMultiStatus(resp); err != nil {
		c.logger.Debug("unexpected response status", "url", url, "status_code", resp.StatusCode)
		return nil, err
	}

	c.logger.Debug("REPORT request complete", "url", url, "bytes", len(resp.Body))
	return resp.Body, nil
}
