package repository_test

import (
	"strings"
	"time"

	"forumhub/internal/model"
)

func texts(comments []model.Comment) string {
	parts := make([]string, len(comments))
	for i, c := range comments {
		parts[i] = c.Text
	}
	return strings.Join(parts, ",")
}

func timeIn(hours int) time.Time {
	return time.Now().Add(time.Duration(hours) * time.Hour)
}
