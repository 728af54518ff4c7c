package audio

import (
	"fmt"
	"math"

	"github.com/maxhawkins/go-webrtcvad"
	"github.com/rs/zerolog/log"
)

// vadFrameMillis is the sub-frame length fed to the classifier. WebRTC VAD only
// accepts 10, 20 or 30 ms frames.
const vadFrameMillis = 20

type WebRTCVAD struct {
	vad          *webrtcvad.VAD
	rmsThreshold float64
}

// NewWebRTCVAD creates a classifier with the given aggressiveness (0-3, where 3
// filters the most).
func NewWebRTCVAD(aggressiveness int) (*WebRTCVAD, error) {
	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create VAD: %w", err)
	}

	if err := vad.SetMode(aggressiveness); err != nil {
		return nil, fmt.Errorf("failed to set VAD mode %d: %w", aggressiveness, err)
	}

	return &WebRTCVAD{
		vad:          vad,
		rmsThreshold: 500.0, // Fallback RMS threshold
	}, nil
}

func (v *WebRTCVAD) IsSpeech(pcm []int16, sampleRate int) bool {
	bytes := EncodePCM(pcm)

	if v.vad == nil || !validVADFrame(sampleRate, len(pcm)) {
		return v.rmsIsSpeech(pcm)
	}

	isSpeech, err := v.vad.Process(sampleRate, bytes)
	if err != nil {
		return v.rmsIsSpeech(pcm)
	}
	return isSpeech
}

// Close drops the detector handle; the library frees its C state once the handle
// is unreachable. IsSpeech falls back to the RMS check afterwards.
func (v *WebRTCVAD) Close() error {
	v.vad = nil
	return nil
}

func (v *WebRTCVAD) rmsIsSpeech(pcm []int16) bool {
	if len(pcm) == 0 {
		return false
	}

	var sum float64
	for _, sample := range pcm {
		sum += float64(sample) * float64(sample)
	}

	rms := math.Sqrt(sum / float64(len(pcm)))
	return rms > v.rmsThreshold
}

func validVADFrame(sampleRate, samples int) bool {
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return false
	}
	for _, ms := range []int{10, 20, 30} {
		if samples == sampleRate*ms/1000 {
			return true
		}
	}
	return false
}

// FilterSpeech keeps only the 20 ms sub-frames the classifier marks as voiced.
// A trailing partial sub-frame is dropped. The result shares ID and timing with
// u and is empty when nothing voiced remains.
func FilterSpeech(u *Utterance, classifier SpeechClassifier) *Utterance {
	if u.Empty() {
		return u
	}

	step := u.SampleRate * vadFrameMillis / 1000
	if step <= 0 {
		return u
	}

	voiced := make([]int16, 0, len(u.PCM))
	kept, total := 0, 0
	for off := 0; off+step <= len(u.PCM); off += step {
		total++
		frame := u.PCM[off : off+step]
		if classifier.IsSpeech(frame, u.SampleRate) {
			voiced = append(voiced, frame...)
			kept++
		}
	}

	log.Debug().
		Int("kept_frames", kept).
		Int("total_frames", total).
		Msg("VAD filter applied")

	out := *u
	out.PCM = voiced
	if len(voiced) == 0 {
		out.PCM = nil
	}
	return &out
}
