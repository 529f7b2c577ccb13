// Package scanner extracts transaction details from receipt images with
// Gemini. A primary model handles the common case; tougher receipts get a
// second pass with a stronger fallback model.
package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

const maxFileBytes = 8 * 1024 * 1024

var allowedMIME = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
}

var allowedCategories = map[string]bool{
	"housing": true, "transportation": true, "groceries": true,
	"utilities": true, "entertainment": true, "food": true,
	"shopping": true, "healthcare": true, "education": true,
	"personal": true, "travel": true, "insurance": true,
	"gifts": true, "bills": true, "other-expense": true,
}

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrNotAReceipt     = errors.New("not a receipt")
)

const receiptPrompt = `Analyze this receipt image and extract the following information in JSON format:

- Total amount (just the number)
- Date (in ISO format)
- Description or items purchased (brief summary)
- Merchant/store name
- Suggested category (one of: housing,transportation,groceries,utilities,entertainment,food,shopping,healthcare,education,personal,travel,insurance,gifts,bills,other-expense)

Only respond with valid JSON in this exact format:
{
  "amount": number,
  "date": "ISO date string",
  "description": "string",
  "merchantName": "string",
  "category": "string"
}

If it's not a receipt, return an empty object.`

// Receipt is the structured result of a scan.
type Receipt struct {
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	MerchantName string          `json:"merchantName"`
	Category     string          `json:"category"`
}

type Config struct {
	APIKey        string
	PrimaryModel  string
	FallbackModel string
}

// Scanner wraps a Gemini client with the receipt extraction flow.
type Scanner struct {
	client   *genai.Client
	primary  string
	fallback string
}

func New(ctx context.Context, cfg Config) (*Scanner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	primary := cfg.PrimaryModel
	if primary == "" {
		primary = "gemini-2.0-flash-lite"
	}
	fallback := cfg.FallbackModel
	if fallback == "" {
		fallback = "gemini-2.0-flash"
	}
	return &Scanner{client: client, primary: primary, fallback: fallback}, nil
}

// Scan extracts receipt details from the given file. Files the primary
// model cannot read are retried once on the fallback model.
func (s *Scanner) Scan(ctx context.Context, data []byte, mimeType string) (*Receipt, error) {
	if !allowedMIME[mimeType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if len(data) > maxFileBytes {
		return nil, ErrFileTooLarge
	}

	r, err := s.scanOnce(ctx, s.primary, data, mimeType)
	if err == nil {
		return r, nil
	}

	slog.InfoContext(ctx, "Retrying receipt scan on fallback model",
		"primary", s.primary,
		"fallback", s.fallback,
		"error", err)

	r, ferr := s.scanOnce(ctx, s.fallback, data, mimeType)
	if ferr != nil {
		return nil, fmt.Errorf("scan receipt: %w", ferr)
	}
	return r, nil
}

func (s *Scanner) scanOnce(ctx context.Context, model string, data []byte, mimeType string) (*Receipt, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
				{Text: receiptPrompt},
			},
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: 512,
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, errors.New("empty response from model")
	}
	return parseReceipt(raw)
}

// parseReceipt turns the raw model output into a validated Receipt. The
// model sometimes wraps the JSON in Markdown fences despite instructions,
// so the text is cleaned first.
func parseReceipt(raw string) (*Receipt, error) {
	clean := cleanModelJSON(raw)

	var payload struct {
		Amount       *json.Number `json:"amount"`
		Date         string       `json:"date"`
		Description  string       `json:"description"`
		MerchantName string       `json:"merchantName"`
		Category     string       `json:"category"`
	}
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal model output: %w", err)
	}

	// An empty object is the model's way of saying "not a receipt".
	if payload.Amount == nil && payload.Date == "" {
		return nil, ErrNotAReceipt
	}
	if payload.Amount == nil || payload.Date == "" {
		return nil, errors.New("model output missing amount or date")
	}

	amount, err := decimal.NewFromString(payload.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", payload.Amount.String(), err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", amount)
	}

	date, err := parseReceiptDate(payload.Date)
	if err != nil {
		return nil, err
	}

	category := payload.Category
	if !allowedCategories[category] {
		category = "other-expense"
	}

	return &Receipt{
		Amount:       amount,
		Date:         date,
		Description:  payload.Description,
		MerchantName: payload.MerchantName,
		Category:     category,
	}, nil
}

func parseReceiptDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q", s)
}

// cleanModelJSON strips Markdown fences and surrounding prose, keeping
// only the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
