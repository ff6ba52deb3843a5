package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

type ChunkRequest struct {
	PCM        []float32 `json:"pcm"`
	SampleRate int       `json:"sample_rate"`
	Language   string    `json:"language"`
}

type ChunkResponse struct {
	Text string `json:"text"`
}

var chunkCounter int

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error parsing JSON body", http.StatusBadRequest)
		return
	}

	duration := 0.0
	if req.SampleRate > 0 {
		duration = float64(len(req.PCM)) / float64(req.SampleRate)
	}

	log.Printf("🎤 TRANSCRIPTION REQUEST RECEIVED:")
	log.Printf("    Samples: %d", len(req.PCM))
	log.Printf("    Sample Rate: %d Hz", req.SampleRate)
	log.Printf("    Duration: %.2f seconds", duration)
	log.Printf("    Language: %s", req.Language)

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	chunkCounter++
	response := ChunkResponse{
		Text: fmt.Sprintf("test transcript fragment %d covering %.2f seconds of audio", chunkCounter, duration),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSCRIPTION RESPONSE SENT: '%s'", response.Text)
	log.Println("---")
}

func main() {
	http.HandleFunc("/transcribe", transcribeHandler)

	port := ":8081"
	log.Printf("🚀 Test Transcription Server starting on port %s", port)
	log.Printf("📡 Endpoint: http://localhost%s/transcribe", port)
	log.Println("💡 Update your config to use: http://localhost:8081/transcribe")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
