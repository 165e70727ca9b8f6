package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"

	"tryonapi/models"
)

// LLMModelName selects the GenAI model used for try-on generation.
type LLMModelName int32

const (
	Flash25Image LLMModelName = iota
	Flash25
	Flash20
)

func (t LLMModelName) String() string {
	switch t {
	case Flash25Image:
		return "gemini-2.5-flash-image-preview"
	case Flash25:
		return "gemini-2.5-flash"
	case Flash20:
		return "gemini-2.0-flash"
	default:
		return "gemini-2.5-flash-image-preview"
	}
}

func floatPointer(f float32) *float32 {
	return &f
}

// TryOnOutcome is a completed generation before it is shaped into the wire
// response: the composited image as a data URI plus a short description.
type TryOnOutcome struct {
	ImageDataURI       string
	Text               string
	InputTokenCount    int32
	OutputTokenCount   int32
	ThoughtsTokenCount int32
	TotalTokenCount    int32
}

type TryOnProcessor interface {
	GenerateTryOn(ctx context.Context, req *models.TryOnRequest) (*TryOnOutcome, error)
}

// GoogleTryOnProcessor generates try-on composites with the Gemini image
// model. A weighted semaphore bounds concurrent generations process-wide.
type GoogleTryOnProcessor struct {
	Model LLMModelName
	sem   *semaphore.Weighted
}

func NewGoogleTryOnProcessor(model LLMModelName, maxConcurrent int64) *GoogleTryOnProcessor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &GoogleTryOnProcessor{Model: model, sem: semaphore.NewWeighted(maxConcurrent)}
}

const tryOnSystemInstruction = `You are a virtual try-on engine. The first image is the person, the second image is the garment. Dress the person from the first image in the garment from the second image. Keep the person's facial identity, body proportions, pose, original background and lighting 100% unchanged - only the clothing is applied. Preserve the garment's textures, patterns and design details with high fidelity. If no person is detected in the first image return "NO_PERSON". Output the composited image plus one short sentence describing the result.`

func buildTryOnPrompt(req *models.TryOnRequest) string {
	var sb strings.Builder
	sb.WriteString("Apply the garment from the second image onto the person from the first image.")
	if req.Attributes.GarmentType != "" {
		fmt.Fprintf(&sb, " The garment is a %s.", req.Attributes.GarmentType)
	}
	if req.Attributes.Style != "" {
		fmt.Fprintf(&sb, " Target a %s style.", req.Attributes.Style)
	}
	if req.Attributes.ModelType != "" {
		fmt.Fprintf(&sb, " Present the person as a %s model.", req.Attributes.ModelType)
	}
	if req.Attributes.Gender != "" {
		fmt.Fprintf(&sb, " The garment fit is %s.", req.Attributes.Gender)
	}
	if req.Instructions != "" {
		fmt.Fprintf(&sb, " Special instructions: %s", req.Instructions)
	}
	return sb.String()
}

func (p *GoogleTryOnProcessor) GenerateTryOn(ctx context.Context, req *models.TryOnRequest) (*TryOnOutcome, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %v", err)
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: req.PersonImage.MimeType, Data: req.PersonImage.Data}},
		{InlineData: &genai.Blob{MIMEType: req.ClothImage.MimeType, Data: req.ClothImage.Data}},
		{Text: buildTryOnPrompt(req)},
	}

	result, err := client.Models.GenerateContent(ctx, p.Model.String(), []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		MaxOutputTokens: 50000,
		Temperature:     floatPointer(1),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: tryOnSystemInstruction}},
		},
	})
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, fmt.Errorf("%v", err)
	}

	if result.PromptFeedback != nil {
		fmt.Println(result.PromptFeedback.BlockReason)
		fmt.Println(result.PromptFeedback.BlockReasonMessage)
		return nil, fmt.Errorf("content violation: %s", result.PromptFeedback.BlockReasonMessage)
	}

	images, err := getAllInlineImages(result)
	if err != nil {
		return nil, err
	}

	text := result.Text()
	if strings.Contains(text, "NO_PERSON") {
		return nil, fmt.Errorf("face not detected")
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("model returned no image")
	}

	dataURI, err := PngDataURI(images[0])
	if err != nil {
		return nil, err
	}

	outcome := &TryOnOutcome{
		ImageDataURI: dataURI,
		Text:         strings.TrimSpace(text),
	}
	if result.UsageMetadata != nil {
		outcome.InputTokenCount = result.UsageMetadata.PromptTokenCount
		outcome.OutputTokenCount = result.UsageMetadata.CandidatesTokenCount
		outcome.ThoughtsTokenCount = result.UsageMetadata.ThoughtsTokenCount
		outcome.TotalTokenCount = result.UsageMetadata.TotalTokenCount
		fmt.Println("Input token count:", outcome.InputTokenCount)
		fmt.Println("Output token count:", outcome.OutputTokenCount)
		fmt.Println("Total token count:", outcome.TotalTokenCount)
	}
	return outcome, nil
}

func getAllInlineImages(result *genai.GenerateContentResponse) ([][]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("empty generation response")
	}

	var allImageData [][]byte
	for _, cand := range result.Candidates {
		for _, rating := range cand.SafetyRatings {
			if rating.Blocked {
				return nil, fmt.Errorf("content blocked by safety setting: %s", rating.Category)
			}
		}
		if cand.Content == nil || len(cand.Content.Parts) == 0 {
			continue
		}
		for _, part := range cand.Content.Parts {
			inlineData := part.InlineData
			if inlineData == nil {
				continue
			}
			if strings.HasPrefix(inlineData.MIMEType, "image/") && len(inlineData.Data) > 0 {
				allImageData = append(allImageData, inlineData.Data)
			}
		}
	}
	return allImageData, nil
}
