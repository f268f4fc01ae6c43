package types

import "sync"

// Metadata is the side-channel message a running test emits to annotate
// the TestResult that will be built for it. The integration layer drains
// pending metadata for a test before constructing its result.
type Metadata struct {
	TestID      string            `json:"test_id,omitempty"`
	Title       string            `json:"title,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
}

// MetadataCollector accumulates annotation messages keyed by test title
// until the integration layer drains them. Safe for use from the test
// goroutine and the collecting goroutine.
type MetadataCollector struct {
	mu      sync.Mutex
	pending map[string][]Metadata
}

// NewMetadataCollector creates an empty collector.
func NewMetadataCollector() *MetadataCollector {
	return &MetadataCollector{
		pending: make(map[string][]Metadata),
	}
}

// Add records an annotation message for the named test.
func (c *MetadataCollector) Add(testName string, md Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[testName] = append(c.pending[testName], md)
}

// Drain removes and returns all pending messages for the named test, in
// the order they were added.
func (c *MetadataCollector) Drain(testName string) []Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.pending[testName]
	delete(c.pending, testName)
	return msgs
}

// Apply folds an annotation message into a result. Later messages win on
// scalar fields; maps and attachments are merged.
func (md Metadata) Apply(result *TestResult) {
	if md.TestID != "" {
		result.ID = md.TestID
	}
	if md.Title != "" {
		result.Title = md.Title
	}
	if len(md.Fields) > 0 {
		if result.Fields == nil {
			result.Fields = make(map[string]string, len(md.Fields))
		}
		for k, v := range md.Fields {
			result.Fields[k] = v
		}
	}
	if len(md.Params) > 0 {
		if result.Params == nil {
			result.Params = make(map[string]string, len(md.Params))
		}
		for k, v := range md.Params {
			result.Params[k] = v
		}
	}
	result.Attachments = append(result.Attachments, md.Attachments...)
}
