package gfx

import (
	"fmt"
	"sort"

	"deferred-renderer/internal/gpu"
	"deferred-renderer/internal/logx"
)

type frameAttachment struct {
	slot       gpu.Attachment
	target     *RenderTarget
	generation uint64
}

// FrameTarget owns a framebuffer object. Its attachments are borrowed: the
// RenderTargets must outlive it.
type FrameTarget struct {
	_ noCopy

	dev         gpu.Device
	id          gpu.FramebufferID
	name        string
	attachments map[gpu.Attachment]*frameAttachment
	drawBuffers []gpu.Attachment
	readBuffer  gpu.Attachment
	valid       bool
}

// NewFrameTarget creates an empty framebuffer. Like a fresh GL framebuffer
// it draws to and reads from colour attachment 0.
func NewFrameTarget(dev gpu.Device, name string) *FrameTarget {
	ft := &FrameTarget{
		dev:         dev,
		id:          dev.CreateFramebuffer(),
		name:        name,
		attachments: make(map[gpu.Attachment]*frameAttachment),
		drawBuffers: []gpu.Attachment{gpu.ColorAttachment(0)},
		readBuffer:  gpu.ColorAttachment(0),
	}
	dev.Label(gpu.ObjectFramebuffer, uint32(ft.id), name)
	logx.Logger().Debug("framebuffer created", "name", name)
	return ft
}

// SetColorAttachment attaches rt at colour slot i.
func (ft *FrameTarget) SetColorAttachment(rt *RenderTarget, i int) {
	ft.attach(gpu.ColorAttachment(i), rt)
}

// SetDepthAttachment attaches rt as the depth buffer.
func (ft *FrameTarget) SetDepthAttachment(rt *RenderTarget) {
	ft.attach(gpu.DepthAttachment, rt)
}

func (ft *FrameTarget) attach(slot gpu.Attachment, rt *RenderTarget) {
	ft.attachments[slot] = &frameAttachment{slot: slot, target: rt, generation: rt.Generation()}
	ft.dev.FramebufferTexture(ft.id, slot, rt.Handle())
	ft.valid = false
}

// SetDrawBuffers selects the attachments fragment outputs are written to, in
// output-location order. gpu.NoAttachment disables an output.
func (ft *FrameTarget) SetDrawBuffers(buffers ...gpu.Attachment) {
	ft.drawBuffers = append(ft.drawBuffers[:0], buffers...)
	ft.dev.FramebufferDrawBuffers(ft.id, ft.drawBuffers)
	ft.valid = false
}

// SetReadBuffer selects the attachment read operations use.
func (ft *FrameTarget) SetReadBuffer(a gpu.Attachment) {
	ft.readBuffer = a
	ft.dev.FramebufferReadBuffer(ft.id, a)
	ft.valid = false
}

// Refresh re-attaches every RenderTarget, picking up storage reallocated by
// RenderTarget.Resize.
func (ft *FrameTarget) Refresh() {
	for _, a := range ft.attachments {
		a.generation = a.target.Generation()
		ft.dev.FramebufferTexture(ft.id, a.slot, a.target.Handle())
	}
	ft.valid = false
}

// Validate checks completeness. The framebuffer's own bookkeeping is checked
// before the driver is asked, so draw buffers naming an empty slot are caught
// even on drivers that stopped reporting it.
func (ft *FrameTarget) Validate() error {
	if err := ft.check(); err != nil {
		return err
	}
	if status := ft.dev.FramebufferStatus(ft.id); status != gpu.StatusComplete {
		return &FramebufferIncompleteError{Name: ft.name, Status: status}
	}
	ft.valid = true
	return nil
}

func (ft *FrameTarget) check() error {
	fail := func(status gpu.FramebufferStatus, format string, args ...any) error {
		return &FramebufferIncompleteError{Name: ft.name, Status: status, Reason: fmt.Sprintf(format, args...)}
	}
	if ft.id == 0 {
		return fail(gpu.StatusUndefined, "framebuffer was destroyed")
	}
	if len(ft.attachments) == 0 {
		return fail(gpu.StatusMissingAttachment, "no attachments")
	}
	w, h := -1, -1
	for _, a := range ft.sortedAttachments() {
		rt := a.target
		switch {
		case rt.Handle() == 0:
			return fail(gpu.StatusIncompleteAttachment, "%s was destroyed", a.slot)
		case a.generation != rt.Generation():
			return fail(gpu.StatusIncompleteAttachment, "%s was reallocated since it was attached", a.slot)
		case rt.Target() != gpu.Texture2D:
			return fail(gpu.StatusIncompleteAttachment, "%s is a %s texture", a.slot, rt.Target())
		case a.slot.IsColor() && rt.Format().IsDepth():
			return fail(gpu.StatusIncompleteAttachment, "%s has depth format %s", a.slot, rt.Format())
		case a.slot == gpu.DepthAttachment && !rt.Format().IsDepth():
			return fail(gpu.StatusIncompleteAttachment, "%s has colour format %s", a.slot, rt.Format())
		}
		if w < 0 {
			w, h = rt.Width(), rt.Height()
		} else if rt.Width() != w || rt.Height() != h {
			return fail(gpu.StatusIncompleteAttachment, "%s is %dx%d, other attachments are %dx%d", a.slot, rt.Width(), rt.Height(), w, h)
		}
	}
	for _, b := range ft.drawBuffers {
		if b == gpu.NoAttachment {
			continue
		}
		if _, ok := ft.attachments[b]; !ok {
			return fail(gpu.StatusIncompleteDrawBuffer, "draw buffer %s has no attachment", b)
		}
	}
	if ft.readBuffer != gpu.NoAttachment {
		if _, ok := ft.attachments[ft.readBuffer]; !ok {
			return fail(gpu.StatusIncompleteReadBuffer, "read buffer %s has no attachment", ft.readBuffer)
		}
	}
	return nil
}

func (ft *FrameTarget) sortedAttachments() []*frameAttachment {
	out := make([]*frameAttachment, 0, len(ft.attachments))
	for _, a := range ft.attachments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].slot > out[j].slot })
	return out
}

// Bind validates the framebuffer if anything changed since the last check
// and makes it the draw and read target. A destroyed framebuffer or
// attachment fails the check. The caller restores the window framebuffer
// when the pass ends.
func (ft *FrameTarget) Bind() error {
	if ft.id == 0 {
		ft.valid = false
	}
	if ft.valid {
		for _, a := range ft.attachments {
			if a.target.Handle() == 0 || a.generation != a.target.Generation() {
				ft.valid = false
				break
			}
		}
	}
	if !ft.valid {
		if err := ft.Validate(); err != nil {
			return err
		}
	}
	ft.dev.BindFramebuffer(ft.id)
	return nil
}

// Size is the size shared by every attachment.
func (ft *FrameTarget) Size() (w, h int) {
	for _, a := range ft.attachments {
		return a.target.Width(), a.target.Height()
	}
	return 0, 0
}

// Attachment returns the RenderTarget at slot, or nil.
func (ft *FrameTarget) Attachment(slot gpu.Attachment) *RenderTarget {
	if a, ok := ft.attachments[slot]; ok {
		return a.target
	}
	return nil
}

func (ft *FrameTarget) Name() string              { return ft.name }
func (ft *FrameTarget) Handle() gpu.FramebufferID { return ft.id }

// Destroy releases the framebuffer but not its attachments.
func (ft *FrameTarget) Destroy() {
	if ft.id == 0 {
		return
	}
	ft.dev.DeleteFramebuffer(ft.id)
	ft.id = 0
	ft.valid = false
}
