package gfx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/internal/gpu"
	"deferred-renderer/internal/gpu/gputest"
)

func colorTarget(t *testing.T, dev gpu.Device, w, h int) *RenderTarget {
	t.Helper()
	rt, err := NewColorAttachment(dev, w, h, gpu.FormatRGBA16F)
	require.NoError(t, err)
	return rt
}

func requireIncomplete(t *testing.T, err error, status gpu.FramebufferStatus) *FramebufferIncompleteError {
	t.Helper()
	var fbErr *FramebufferIncompleteError
	require.True(t, errors.As(err, &fbErr), "got %v", err)
	assert.Equal(t, status, fbErr.Status)
	return fbErr
}

func TestBindColorOnly(t *testing.T) {
	dev := gputest.New()
	ft := NewFrameTarget(dev, "color")
	ft.SetColorAttachment(colorTarget(t, dev, 16, 16), 0)

	require.NoError(t, ft.Bind())
	assert.Equal(t, ft.Handle(), dev.CurrentFramebuffer)
	w, h := ft.Size()
	assert.Equal(t, [2]int{16, 16}, [2]int{w, h})
}

func TestBindFailsOnUnattachedDrawBuffer(t *testing.T) {
	dev := gputest.New()
	ft := NewFrameTarget(dev, "post")
	ft.SetColorAttachment(colorTarget(t, dev, 16, 16), 0)
	ft.SetDrawBuffers(gpu.ColorAttachment(0), gpu.ColorAttachment(1))

	err := ft.Bind()
	fbErr := requireIncomplete(t, err, gpu.StatusIncompleteDrawBuffer)
	assert.Equal(t, "post", fbErr.Name)
	assert.Contains(t, fbErr.Error(), "COLOR1")
	assert.Equal(t, gpu.DefaultFramebuffer, dev.CurrentFramebuffer, "failed bind must not change state")
}

func TestBindGBuffer(t *testing.T) {
	dev := gputest.New()
	ft := NewFrameTarget(dev, "g-buffer")
	for i := 0; i < 3; i++ {
		ft.SetColorAttachment(colorTarget(t, dev, 32, 16), i)
	}
	depth, err := NewDepthAttachment(dev, 32, 16)
	require.NoError(t, err)
	ft.SetDepthAttachment(depth)
	ft.SetDrawBuffers(gpu.ColorAttachment(0), gpu.ColorAttachment(1), gpu.ColorAttachment(2))

	require.NoError(t, ft.Bind())
	fb := dev.Framebuffers[ft.Handle()]
	assert.Len(t, fb.Attachments, 4)
	assert.Equal(t, depth.Handle(), fb.Attachments[gpu.DepthAttachment])
	assert.Same(t, depth, ft.Attachment(gpu.DepthAttachment))
	assert.Equal(t, "g-buffer", fb.Label)
}

func TestBindDepthOnly(t *testing.T) {
	dev := gputest.New()
	depth, err := NewDepthAttachment(dev, 512, 512)
	require.NoError(t, err)
	ft := NewFrameTarget(dev, "shadow")
	ft.SetDepthAttachment(depth)

	requireIncomplete(t, ft.Bind(), gpu.StatusIncompleteDrawBuffer)

	ft.SetDrawBuffers(gpu.NoAttachment)
	ft.SetReadBuffer(gpu.NoAttachment)
	require.NoError(t, ft.Bind())
}

func TestBindWithoutAttachments(t *testing.T) {
	ft := NewFrameTarget(gputest.New(), "empty")
	requireIncomplete(t, ft.Bind(), gpu.StatusMissingAttachment)
}

func TestBindRejectsMismatchedSizes(t *testing.T) {
	dev := gputest.New()
	ft := NewFrameTarget(dev, "mixed")
	ft.SetColorAttachment(colorTarget(t, dev, 16, 16), 0)
	ft.SetColorAttachment(colorTarget(t, dev, 8, 8), 1)
	ft.SetDrawBuffers(gpu.ColorAttachment(0), gpu.ColorAttachment(1))

	requireIncomplete(t, ft.Bind(), gpu.StatusIncompleteAttachment)
}

func TestBindRejectsWrongFormatForSlot(t *testing.T) {
	dev := gputest.New()
	depth, err := NewDepthAttachment(dev, 8, 8)
	require.NoError(t, err)
	ft := NewFrameTarget(dev, "wrong")
	ft.SetColorAttachment(depth, 0)

	requireIncomplete(t, ft.Bind(), gpu.StatusIncompleteAttachment)
}

func TestBindDetectsReallocatedAttachment(t *testing.T) {
	dev := gputest.New()
	rt := colorTarget(t, dev, 16, 16)
	ft := NewFrameTarget(dev, "lit")
	ft.SetColorAttachment(rt, 0)
	require.NoError(t, ft.Bind())

	require.NoError(t, rt.Resize(32, 32))
	fbErr := requireIncomplete(t, ft.Bind(), gpu.StatusIncompleteAttachment)
	assert.Contains(t, fbErr.Reason, "reallocated")

	ft.Refresh()
	require.NoError(t, ft.Bind())
	assert.Equal(t, rt.Handle(), dev.Framebuffers[ft.Handle()].Attachments[gpu.ColorAttachment(0)])
}

func TestBindDetectsDestroyedAttachment(t *testing.T) {
	dev := gputest.New()
	rt := colorTarget(t, dev, 16, 16)
	ft := NewFrameTarget(dev, "lit")
	ft.SetColorAttachment(rt, 0)
	rt.Destroy()

	requireIncomplete(t, ft.Bind(), gpu.StatusIncompleteAttachment)
}

func TestBindAfterAttachmentDestroyedFails(t *testing.T) {
	dev := gputest.New()
	rt := colorTarget(t, dev, 16, 16)
	ft := NewFrameTarget(dev, "lit")
	ft.SetColorAttachment(rt, 0)
	require.NoError(t, ft.Bind())
	dev.BindFramebuffer(gpu.DefaultFramebuffer)

	rt.Destroy()
	fbErr := requireIncomplete(t, ft.Bind(), gpu.StatusIncompleteAttachment)
	assert.Contains(t, fbErr.Reason, "destroyed")
	assert.Equal(t, gpu.DefaultFramebuffer, dev.CurrentFramebuffer)
}

func TestBindAfterFrameTargetDestroyedFails(t *testing.T) {
	dev := gputest.New()
	ft := NewFrameTarget(dev, "lit")
	ft.SetColorAttachment(colorTarget(t, dev, 16, 16), 0)
	require.NoError(t, ft.Bind())
	dev.BindFramebuffer(gpu.DefaultFramebuffer)

	ft.Destroy()
	fbErr := requireIncomplete(t, ft.Bind(), gpu.StatusUndefined)
	assert.Contains(t, fbErr.Reason, "destroyed")
	assert.Equal(t, gpu.DefaultFramebuffer, dev.CurrentFramebuffer)
}

func TestFrameTargetDestroyKeepsAttachments(t *testing.T) {
	dev := gputest.New()
	rt := colorTarget(t, dev, 4, 4)
	ft := NewFrameTarget(dev, "tmp")
	ft.SetColorAttachment(rt, 0)

	ft.Destroy()
	ft.Destroy()
	assert.Empty(t, dev.Framebuffers)
	assert.Contains(t, dev.Textures, rt.Handle())
}
