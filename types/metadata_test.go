package types

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataCollector_AddDrain(t *testing.T) {
	c := NewMetadataCollector()
	c.Add("TestSync", Metadata{TestID: "case-1"})
	c.Add("TestSync", Metadata{Fields: map[string]string{"layer": "l2"}})
	c.Add("TestReorg", Metadata{TestID: "case-2"})

	msgs := c.Drain("TestSync")
	require.Len(t, msgs, 2)
	assert.Equal(t, "case-1", msgs[0].TestID)
	assert.Equal(t, "l2", msgs[1].Fields["layer"])

	// Draining consumes.
	assert.Empty(t, c.Drain("TestSync"))

	other := c.Drain("TestReorg")
	require.Len(t, other, 1)
	assert.Equal(t, "case-2", other[0].TestID)
}

func TestMetadataCollector_ConcurrentAdd(t *testing.T) {
	c := NewMetadataCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add("TestSync", Metadata{TestID: "case"})
		}()
	}
	wg.Wait()
	assert.Len(t, c.Drain("TestSync"), 50)
}

func TestMetadataApply(t *testing.T) {
	result := TestResult{
		Title:  "TestSync",
		Status: TestStatusPassed,
		Fields: map[string]string{"suite": "acceptance"},
	}

	md := Metadata{
		TestID: "case-9",
		Title:  "TestSync/renamed",
		Fields: map[string]string{"layer": "l2"},
		Params: map[string]string{"network": "op"},
		Attachments: []Attachment{
			{Name: "trace.log", Path: "/tmp/trace.log"},
		},
	}
	md.Apply(&result)

	assert.Equal(t, "case-9", result.ID)
	assert.Equal(t, "TestSync/renamed", result.Title)
	assert.Equal(t, "acceptance", result.Fields["suite"], "existing fields survive the merge")
	assert.Equal(t, "l2", result.Fields["layer"])
	assert.Equal(t, "op", result.Params["network"])
	require.Len(t, result.Attachments, 1)
	assert.Equal(t, "trace.log", result.Attachments[0].Name)
}

func TestMetadataApply_EmptyMessageIsNoOp(t *testing.T) {
	result := TestResult{Title: "TestSync", Status: TestStatusPassed}
	Metadata{}.Apply(&result)

	assert.Equal(t, "TestSync", result.Title)
	assert.Empty(t, result.ID)
	assert.Nil(t, result.Fields)
	assert.Nil(t, result.Attachments)
}
