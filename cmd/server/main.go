package main

import (
	"forumhub/internal/logger"
	"forumhub/internal/transport/http"
)

func main() {
	if err := http.Run(); err != nil {
		logger.Error.Fatalf("Server failed: %v", err)
	}
}
