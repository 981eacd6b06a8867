package audio

import (
	"fmt"
	"math"
)

// Resampler converts interleaved 16-bit PCM between sample rates.
type Resampler interface {
	Resample(input []int16, inputRate, outputRate, channels int) ([]int16, error)
}

// LinearResampler converts by linear interpolation. Simple, fast, no
// dependencies; good enough for speech playback where the source material
// has little high-frequency content.
type LinearResampler struct{}

func NewLinearResampler() *LinearResampler {
	return &LinearResampler{}
}

// Resample interpolates each output frame between the two nearest input
// frames:
//
//	ratio = inputRate / outputRate
//	position = outputIndex * ratio
//	i = floor(position)
//	frac = position - i
//	output[outputIndex] = input[i] * (1 - frac) + input[i+1] * frac
func (r *LinearResampler) Resample(input []int16, inputRate, outputRate, channels int) ([]int16, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: input=%d, output=%d", inputRate, outputRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channels: %d", channels)
	}
	if len(input) == 0 {
		return []int16{}, nil
	}

	if inputRate == outputRate {
		result := make([]int16, len(input))
		copy(result, input)
		return result, nil
	}

	inputFrames := len(input) / channels
	if inputFrames == 0 {
		return []int16{}, nil
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputFrames := int(math.Ceil(float64(inputFrames) / ratio))
	output := make([]int16, outputFrames*channels)

	for outFrame := 0; outFrame < outputFrames; outFrame++ {
		position := float64(outFrame) * ratio
		inFrame := int(position)
		frac := position - float64(inFrame)

		// Clamp to the last input frame pair.
		if inFrame >= inputFrames-1 {
			inFrame = inputFrames - 2
			if inFrame < 0 {
				inFrame = 0
			}
			frac = 1.0
		}

		for ch := 0; ch < channels; ch++ {
			inIdx1 := inFrame*channels + ch
			inIdx2 := (inFrame+1)*channels + ch
			outIdx := outFrame*channels + ch

			if inIdx2 >= len(input) {
				inIdx2 = inIdx1
			}

			sample1 := float64(input[inIdx1])
			sample2 := float64(input[inIdx2])
			interpolated := sample1*(1.0-frac) + sample2*frac

			if interpolated > 32767 {
				interpolated = 32767
			} else if interpolated < -32768 {
				interpolated = -32768
			}

			output[outIdx] = int16(interpolated)
		}
	}

	return output, nil
}
