package capture

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type portAudioDevice struct {
	stream *portaudio.Stream
}

// New initializes PortAudio and returns a microphone Device.
func New() (Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("capture: failed to initialize PortAudio: %w", err)
	}
	return &portAudioDevice{}, nil
}

func (p *portAudioDevice) Start(ctx context.Context, deviceID string, frameSize int, out chan<- Frame) error {
	device, err := findInputDevice(deviceID)
	if err != nil {
		return err
	}

	if device.MaxInputChannels < 1 {
		return fmt.Errorf("capture: device has no input channels: %s", device.Name)
	}
	// Capture at the device's native rate; the driver downsamples to the
	// wire rate. Request mono and downmix in software if the host hands
	// back interleaved channels anyway.
	channels := 1
	rate := int(device.DefaultSampleRate)
	if rate <= 0 {
		rate = 48000
	}

	buffer := make([]float32, frameSize*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(rate),
		FramesPerBuffer: frameSize,
	}, buffer)
	if err != nil {
		return fmt.Errorf("capture: failed to open audio stream: %w", err)
	}

	p.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		p.stream = nil
		return fmt.Errorf("capture: failed to start audio stream: %w", err)
	}

	go func() {
		defer stream.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if err := stream.Read(); err != nil {
					return
				}
				samples := downmixInterleaved(buffer, channels, frameSize)

				select {
				case out <- Frame{Samples: samples, Rate: rate}:
				case <-ctx.Done():
					return
				default:
					// real-time capture: drop rather than buffer
				}
			}
		}
	}()

	return nil
}

func (p *portAudioDevice) Stop() error {
	if p.stream != nil {
		return p.stream.Stop()
	}
	return nil
}

func (p *portAudioDevice) ListDevices() ([]InputDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("capture: failed to list devices: %w", err)
	}

	result := make([]InputDevice, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, InputDevice{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

func (p *portAudioDevice) Close() error {
	if p.stream != nil {
		p.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

func findInputDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("capture: failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("capture: failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("capture: device not found: %s", deviceID)
}

// downmixInterleaved averages interleaved channels into a mono copy.
func downmixInterleaved(buffer []float32, channels, frames int) []float32 {
	mono := make([]float32, frames)
	if channels <= 1 {
		copy(mono, buffer[:frames])
		return mono
	}
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += buffer[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
