package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Device bundles a WebGPU device with the instance and adapter it came from.
// It has no surface; the lighting uploader only needs a device and queue.
type Device struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
}

// NewHeadlessDevice requests an adapter and device without a presentation
// surface.
//
// Parameters:
//   - forceFallbackAdapter: request the software fallback adapter
//
// Returns:
//   - *Device: the device bundle
//   - error: an error if no adapter or device is available
func NewHeadlessDevice(forceFallbackAdapter bool) (*Device, error) {
	d := &Device{Instance: wgpu.CreateInstance(nil)}

	a, err := d.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		d.Instance.Release()
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	d.Adapter = a

	limits := wgpu.DefaultLimits()
	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Lighting Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		a.Release()
		d.Instance.Release()
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	d.Device = dev
	d.Queue = dev.GetQueue()
	return d, nil
}

// Release frees the device, adapter and instance.
func (d *Device) Release() {
	if d.Queue != nil {
		d.Queue.Release()
	}
	if d.Device != nil {
		d.Device.Release()
	}
	if d.Adapter != nil {
		d.Adapter.Release()
	}
	if d.Instance != nil {
		d.Instance.Release()
	}
}
