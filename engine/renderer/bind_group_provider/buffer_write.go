package bind_group_provider

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Apply submits the write to queue. Writes that fall outside the target
// buffer are rejected before reaching the device.
//
// Parameters:
//   - queue: the queue the write is submitted to
//
// Returns:
//   - error: an error if the binding has no buffer or the write overflows it
func (w BufferWrite) Apply(queue *wgpu.Queue) error {
	buf, size := w.Provider.Buffer(w.Binding)
	if buf == nil {
		return fmt.Errorf("bind group provider %s: binding %d has no buffer", w.Provider.Label(), w.Binding)
	}
	if w.Offset+uint64(len(w.Data)) > size {
		return fmt.Errorf("bind group provider %s: write of %d bytes at %d overflows binding %d (%d bytes)",
			w.Provider.Label(), len(w.Data), w.Offset, w.Binding, size)
	}
	queue.WriteBuffer(buf, w.Offset, w.Data)
	return nil
}
