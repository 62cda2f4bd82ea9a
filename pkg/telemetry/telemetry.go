package telemetry

// Stub for open-source builds - usage telemetry ships only in managed
// deployments. This provides no-op implementations to satisfy imports.

type Client struct{}

var GlobalClient *Client = nil

func (c *Client) TrackWithContext(event string, props map[string]interface{}, args ...string) {}
func (c *Client) Track(event string, props map[string]interface{})                            {}
