package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reelforge/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a lightweight facade over the remote generation engine. Without
// an API key it produces deterministic synthetic assets, which keeps the
// whole pipeline (job store, write-back, progress) exercisable in local and
// CI environments.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults. A nil HTTP client gets a
// reusable one with a generation-friendly timeout.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// ImageRequest carries the information required to generate one image.
type ImageRequest struct {
	Prompt    string
	Model     string
	Style     string
	RequestID string
}

// ImageAsset is the normalized representation of a generated image.
type ImageAsset struct {
	Format string
	Data   []byte
}

// SpeechRequest carries the information required to synthesize narration.
type SpeechRequest struct {
	Text      string
	Voice     string
	RequestID string
}

// AudioAsset is the normalized representation of synthesized narration.
type AudioAsset struct {
	Format string
	Data   []byte
}

// VideoRequest carries the information required to animate a sentence. Image
// is the prerequisite still the engine conditions on.
type VideoRequest struct {
	Prompt    string
	Image     []byte
	RequestID string
}

// VideoAsset is the normalized representation of a generated clip.
type VideoAsset struct {
	Format string
	Length int
	Data   []byte
}

// GenerateImage produces one image for the prompt.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return &ImageAsset{Format: "image/png", Data: syntheticPNG(req.Prompt + "|" + req.Style)}, nil
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	prompt := req.Prompt
	if req.Style != "" {
		prompt = prompt + ", " + req.Style + " style"
	}
	data, mime, err := c.generateInline(ctx, model, prompt, "image/png", nil)
	if err != nil {
		return nil, err
	}
	return &ImageAsset{Format: mime, Data: data}, nil
}

// SynthesizeSpeech produces narration audio for the text.
func (c *Client) SynthesizeSpeech(ctx context.Context, req SpeechRequest) (*AudioAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return &AudioAsset{Format: "audio/wav", Data: syntheticWAV(req.Text)}, nil
	}
	data, mime, err := c.generateInline(ctx, c.model, "Narrate: "+req.Text, "audio/wav", nil)
	if err != nil {
		return nil, err
	}
	return &AudioAsset{Format: mime, Data: data}, nil
}

// GenerateVideo produces a short clip animating the prerequisite image.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (*VideoAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return &VideoAsset{Format: "video/mp4", Length: 5, Data: syntheticClip(req.Prompt)}, nil
	}
	data, mime, err := c.generateInline(ctx, c.model, req.Prompt, "video/mp4", req.Image)
	if err != nil {
		return nil, err
	}
	return &VideoAsset{Format: mime, Length: 5, Data: data}, nil
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// generateInline posts one generateContent call and returns the first inline
// binary part of the requested kind.
func (c *Client) generateInline(ctx context.Context, model, prompt, wantMIME string, conditioning []byte) ([]byte, string, error) {
	parts := []part{{Text: prompt}}
	if len(conditioning) > 0 {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(conditioning),
		}})
	}
	body, err := json.Marshal(generateContentRequest{Contents: []content{{Role: "user", Parts: parts}}})
	if err != nil {
		return nil, "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("call generation engine: %w", err)
	}
	defer resp.Body.Close()

	var decoded generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := decoded.Error.Message
		if msg == "" {
			msg = resp.Status
		}
		return nil, "", fmt.Errorf("generation engine: %s", msg)
	}

	for _, cand := range decoded.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || !strings.HasPrefix(p.InlineData.MimeType, strings.SplitN(wantMIME, "/", 2)[0]) {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, "", fmt.Errorf("decode inline data: %w", err)
			}
			return raw, p.InlineData.MimeType, nil
		}
	}
	return nil, "", fmt.Errorf("generation engine returned no %s candidate", wantMIME)
}

// syntheticPNG renders a small deterministic placeholder image seeded by the
// prompt, so repeated runs produce byte-identical artifacts.
func syntheticPNG(seed string) []byte {
	sum := sha256.Sum256([]byte(seed))
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	bg := color.RGBA{R: sum[0], G: sum[1], B: sum[2], A: 255}
	fg := color.RGBA{R: sum[3], G: sum[4], B: sum[5], A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	for i := 0; i < 16; i++ {
		x := int(sum[6+i]) % 64
		y := int(sum[16+i]) % 36
		img.Set(x, y, fg)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return sum[:]
	}
	return buf.Bytes()
}

// syntheticWAV emits a valid, silent PCM WAV sized to the text length.
func syntheticWAV(seed string) []byte {
	samples := 8000 + len(seed)*160
	dataLen := samples * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16000))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(32000))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

// syntheticClip emits deterministic placeholder bytes standing in for a clip.
func syntheticClip(seed string) []byte {
	sum := sha256.Sum256([]byte("clip|" + seed))
	out := make([]byte, 0, 4096)
	for len(out) < 4096 {
		out = append(out, sum[:]...)
	}
	return out[:4096]
}
