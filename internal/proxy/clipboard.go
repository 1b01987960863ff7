package proxy

import (
	"context"

	"github.com/jmylchreest/hostsync/internal/parcel"
	"github.com/jmylchreest/hostsync/internal/platform"
)

// ClipItem is one item of a clip. Only one representation is normally set.
type ClipItem struct {
	Text string
	URI  string
	HTML string
}

// CoerceToText returns the item as plain text: the text if present,
// otherwise the URI, otherwise the HTML markup.
func (i ClipItem) CoerceToText() string {
	switch {
	case i.Text != "":
		return i.Text
	case i.URI != "":
		return i.URI
	default:
		return i.HTML
	}
}

// Clip is a clipboard payload.
type Clip struct {
	Label string
	Items []ClipItem
}

// NewPlainTextClip wraps text in a single-item clip.
func NewPlainTextClip(label, text string) *Clip {
	return &Clip{Label: label, Items: []ClipItem{{Text: text}}}
}

// ItemCount returns the number of items; a nil clip has none.
func (c *Clip) ItemCount() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Text returns the first item coerced to text, or "" for an empty clip.
func (c *Clip) Text() string {
	if c.ItemCount() == 0 {
		return ""
	}
	return c.Items[0].CoerceToText()
}

// SendClipboardData pushes the first item of clip to the host as plain text.
// An empty clip is not sent.
func (p *Proxy) SendClipboardData(ctx context.Context, clip *Clip) {
	if p.binder == nil || clip.ItemCount() == 0 {
		return
	}

	data := parcel.NewWriter()
	data.WriteInterfaceToken(platform.InterfaceToken)
	platform.EncodeClipboard(data, true, clip.Text())

	if _, err := p.transact(ctx, platform.TransactionSetClipboardData, data); err != nil {
		p.logger.Warn("failed to send clipboard data to host", "error", err)
		return
	}
	p.logger.Debug("clipboard data sent to host", "bytes", len(clip.Text()))
}

// UpdateClipboardIfNecessary fetches the host clipboard and returns a new
// plain-text clip when it differs from current. It returns false when the
// host has nothing, when the host text equals the first item of current, or
// when the host cannot be reached. Applying the clip is left to the caller.
func (p *Proxy) UpdateClipboardIfNecessary(ctx context.Context, current *Clip) (*Clip, bool) {
	if p.binder == nil {
		return nil, false
	}

	data := parcel.NewWriter()
	data.WriteInterfaceToken(platform.InterfaceToken)

	reply, err := p.transact(ctx, platform.TransactionGetClipboardData, data)
	if err != nil {
		p.logger.Warn("failed to retrieve clipboard data from host", "error", err)
		return nil, false
	}

	text, hasData, err := platform.DecodeClipboard(parcel.NewReader(reply))
	if err != nil {
		p.logger.Warn("malformed clipboard reply from host", "error", err)
		return nil, false
	}
	if !hasData {
		return nil, false
	}

	// Text the guest already holds is most likely its own push coming back.
	if current.ItemCount() > 0 && current.Text() == text {
		return nil, false
	}

	return NewPlainTextClip("", text), true
}
