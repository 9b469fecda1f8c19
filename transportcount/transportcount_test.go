package transportcount

import (
	"bytes"
	"testing"
	"time"

	"github.com/hostnetbr/userstats/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func running(digest string) descriptor.StatusEntry {
	return descriptor.StatusEntry{Descriptor: digest, Flags: map[string]bool{"Running": true}}
}

func TestCount(t *testing.T) {
	c := NewCounter()
	c.AddExtraInfo(&descriptor.ExtraInfo{Digest: "E1", Transports: []string{"obfs2", "obfs3"}})
	c.AddExtraInfo(&descriptor.ExtraInfo{Digest: "E2", Transports: []string{"obfs3"}})
	c.AddExtraInfo(&descriptor.ExtraInfo{Digest: "E3"})
	c.AddServerDescriptor(&descriptor.ServerDescriptor{Digest: "S1", ExtraInfoDigest: "E1"})
	c.AddServerDescriptor(&descriptor.ServerDescriptor{Digest: "S2", ExtraInfoDigest: "E2"})
	c.AddServerDescriptor(&descriptor.ServerDescriptor{Digest: "S3", ExtraInfoDigest: "E3"})
	c.AddServerDescriptor(&descriptor.ServerDescriptor{Digest: "S4"})

	published := time.Date(2013, 1, 2, 12, 7, 0, 0, time.UTC)
	status := &descriptor.BridgeStatus{
		Published: published,
		Entries: []descriptor.StatusEntry{
			running("S1"),
			running("S2"),
			running("S3"),
			running("S4"),
			running("unknown"),
			{Descriptor: "S1", Flags: map[string]bool{"Valid": true}},
		},
	}

	assert.Equal(t, []Row{
		{Published: published, Transport: "obfs2", Bridges: 1},
		{Published: published, Transport: "obfs3", Bridges: 2},
	}, c.Count(status))

	assert.Empty(t, c.Count(&descriptor.BridgeStatus{Published: published}))
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	published := time.Date(2013, 1, 2, 12, 7, 0, 0, time.UTC)
	require.NoError(t, w.Write([]Row{
		{Published: published, Transport: "<OR>", Bridges: 3},
		{Published: published, Transport: "obfs3", Bridges: 12},
	}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "published,transport,bridges\n"+
		"2013-01-02 12:07:00,<OR>,3\n"+
		"2013-01-02 12:07:00,obfs3,12\n", buf.String())
}

func TestCountSanitizedDescriptors(t *testing.T) {
	parse := func(text string) descriptor.Descriptor {
		descs, err := descriptor.Parse([]byte(text))
		require.NoError(t, err)
		require.Len(t, descs, 1)
		return descs[0]
	}
	extraInfo := parse(`@type bridge-extra-info 1.3
extra-info bridge1 0000000000000000000000000000000000000001
published 2013-01-02 03:00:00
transport obfs4
router-digest 1111111111111111111111111111111111111111
`).(*descriptor.ExtraInfo)
	server := parse(`@type bridge-server-descriptor 1.1
router bridge1 10.0.0.1 443 0 0
published 2013-01-02 03:00:00
fingerprint 0000 0000 0000 0000 0000 0000 0000 0000 0000 0001
extra-info-digest 1111111111111111111111111111111111111111
router-digest 2222222222222222222222222222222222222222
`).(*descriptor.ServerDescriptor)
	// IiIi... is the base64 form of the 0x22 server descriptor digest.
	status := parse(`@type bridge-network-status 1.0
published 2013-01-02 12:07:00
r bridge1 AAAAAAAAAAAAAAAAAAAAAAAAAAE IiIiIiIiIiIiIiIiIiIiIiIiIiI 2013-01-02 03:00:00 10.0.0.1 443 0
s Running Valid
`).(*descriptor.BridgeStatus)

	c := NewCounter()
	c.AddExtraInfo(extraInfo)
	c.AddServerDescriptor(server)
	assert.Equal(t, []Row{
		{Published: status.Published, Transport: "obfs4", Bridges: 1},
	}, c.Count(status))
}
