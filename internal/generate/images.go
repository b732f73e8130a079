package generate

import (
	"context"
	"fmt"
	"strings"

	"cardgen/internal/llm"
)

// maxAnalyzedPhotos bounds how many photos go into one analysis call.
const maxAnalyzedPhotos = 2

// maxTargetFields bounds how many field names the analyzer is told to
// focus on.
const maxTargetFields = 50

// ImageAnalyzer turns product photos into a dense textual description
// that the downstream text-only services work from.
type ImageAnalyzer struct {
	client llm.Completer
	log    func(string)
}

// NewImageAnalyzer creates an analyzer. log may be nil.
func NewImageAnalyzer(client llm.Completer, log func(string)) *ImageAnalyzer {
	return &ImageAnalyzer{client: client, log: log}
}

func (a *ImageAnalyzer) logf(format string, args ...any) {
	if a.log != nil {
		a.log(fmt.Sprintf(format, args...))
	}
}

type imageReply struct {
	Description string `json:"description"`
}

// Describe analyzes the first photos of the card, steering attention
// toward the fields that still need values. Analysis never fails the
// caller: missing photos and model errors come back as a diagnostic
// description the downstream text services still work from.
func (a *ImageAnalyzer) Describe(ctx context.Context, photoURLs []string, subjectName string, targetFields []string) string {
	if len(photoURLs) == 0 {
		a.logf("no photos to analyze")
		return "No photos available"
	}
	if len(photoURLs) > maxAnalyzedPhotos {
		photoURLs = photoURLs[:maxAnalyzedPhotos]
	}
	if len(targetFields) > maxTargetFields {
		targetFields = targetFields[:maxTargetFields]
	}
	if subjectName == "" {
		subjectName = "Unknown product"
	}

	a.logf("analyzing %d images", len(photoURLs))

	reply, err := llm.CompleteInto[imageReply](ctx, a.client, llm.Request{
		System: strings.TrimSpace(imageAnalyzerPrompt),
		Payload: map[string]any{
			"subject_name": subjectName,
			"task": "Describe ALL visual details for characteristics. " +
				"Pay special attention to the listed characteristics and provide " +
				"as much visual information as possible for each of them.",
			"target_characteristics": targetFields,
		},
		Images:    photoURLs,
		MaxTokens: 16000,
	})
	if err != nil {
		a.logf("image analysis error: %v", err)
		return fmt.Sprintf("Image analysis failed: %v", err)
	}

	description := strings.TrimSpace(reply.Description)
	if description == "" {
		a.logf("image analysis error: empty description")
		return "Image analysis failed: empty description"
	}

	a.logf("image analysis: %d characters", len(description))
	return description
}
