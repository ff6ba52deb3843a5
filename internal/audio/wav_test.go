package audio

import (
	"math"
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	// Generate test audio samples (440Hz sine wave for 0.1 seconds at 8kHz)
	sampleRate := 8000
	duration := 0.1
	frequency := 440.0

	numSamples := int(float64(sampleRate) * duration)
	samples := make([]float32, numSamples)

	for i := 0; i < numSamples; i++ {
		t := float64(i) / float64(sampleRate)
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*frequency*t))
	}

	wavData, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(wavData) == 0 {
		t.Fatal("WAV data is empty")
	}

	// WAV header should be 44 bytes, samples 16-bit
	expectedSize := 44 + len(samples)*2
	if len(wavData) != expectedSize {
		t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	originalSamples := []float32{0.1, -0.2, 0.3, -0.4, 0.5}
	sampleRate := 8000

	wavData, err := EncodeWAV(originalSamples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decodedSamples, decodedSampleRate, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if decodedSampleRate != sampleRate {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, decodedSampleRate)
	}

	if len(decodedSamples) != len(originalSamples) {
		t.Fatalf("Expected %d samples, got %d", len(originalSamples), len(decodedSamples))
	}

	// 16-bit quantization loses precision; allow one quantization step
	for i, original := range originalSamples {
		if math.Abs(float64(decodedSamples[i]-original)) > 1.0/32767.0 {
			t.Errorf("Sample %d: expected %.5f, got %.5f", i, original, decodedSamples[i])
		}
	}
}

func TestEncodeWAVClamping(t *testing.T) {
	samples := []float32{2.0, -2.0, 1.0, -1.0}

	wavData, err := EncodeWAV(samples, 8000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, _, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	// Out-of-range samples clamp to the same value as full scale
	if decoded[0] != decoded[2] {
		t.Errorf("Expected +2.0 to clamp to same value as +1.0: %.5f vs %.5f", decoded[0], decoded[2])
	}
	if decoded[1] != decoded[3] {
		t.Errorf("Expected -2.0 to clamp to same value as -1.0: %.5f vs %.5f", decoded[1], decoded[3])
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	_, err := EncodeWAV([]float32{}, 8000)
	if err == nil {
		t.Error("Expected error for empty samples")
	}
}

func TestEncodeWAVInvalidSampleRate(t *testing.T) {
	samples := []float32{0.1, 0.2, 0.3}
	_, err := EncodeWAV(samples, 0)
	if err == nil {
		t.Error("Expected error for zero sample rate")
	}

	_, err = EncodeWAV(samples, -1000)
	if err == nil {
		t.Error("Expected error for negative sample rate")
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	if _, _, err := DecodeWAV([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for too short WAV data")
	}

	invalidWAV := make([]byte, 50)
	copy(invalidWAV[0:4], []byte("FAKE"))
	if _, _, err := DecodeWAV(invalidWAV); err == nil {
		t.Error("Expected error for invalid RIFF header")
	}
}
