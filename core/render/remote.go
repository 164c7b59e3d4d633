package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bosko/core/apperr"
	"bosko/logger"
	"bosko/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// Invoker is the part of the Lambda API the remote renderer needs. *lambda.Client satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// NewLambdaClient builds a Lambda client. Static keys are used when given, otherwise the default AWS chain.
func NewLambdaClient(ctx context.Context, region, accessKeyID, secretAccessKey string) (*lambda.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return lambda.NewFromConfig(cfg), nil
}

type renderRequest struct {
	AudioS3Key string `json:"audioS3Key"`
	ImageS3Key string `json:"imageS3Key"`
	FileName   string `json:"fileName"`
}

type renderResponse struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

type renderBody struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// RemoteRenderer delegates rendering to a serverless function that reads and
// writes the same bucket as the asset store.
type RemoteRenderer struct {
	invoker  Invoker
	function string
	timeout  time.Duration
	store    storage.AssetStore
}

// NewRemoteRenderer creates a RemoteRenderer calling function.
func NewRemoteRenderer(invoker Invoker, function string, store storage.AssetStore, timeout time.Duration) *RemoteRenderer {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &RemoteRenderer{invoker: invoker, function: function, timeout: timeout, store: store}
}

// Render invokes the function and reads the video back. When the read-back
// fails the returned Output still carries TempKey.
func (r *RemoteRenderer) Render(ctx context.Context, in Input) (*Output, error) {
	payload, err := json.Marshal(renderRequest{
		AudioS3Key: in.AudioKey,
		ImageS3Key: in.ImageKey,
		FileName:   storage.SafeName(in.Label),
	})
	if err != nil {
		return nil, apperr.Internal("encode render request", err)
	}

	ictx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	out, err := r.invoker.Invoke(ictx, &lambda.InvokeInput{
		FunctionName:   aws.String(r.function),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, apperr.Protocol("render function invocation failed", err)
	}
	if out.FunctionError != nil {
		return nil, apperr.Protocol("render function failed: "+aws.ToString(out.FunctionError), fmt.Errorf("%s", out.Payload))
	}
	if out.StatusCode != 200 {
		return nil, apperr.Protocol(fmt.Sprintf("render function returned invoke status %d", out.StatusCode), nil)
	}

	key, err := parseRenderResponse(out.Payload)
	if err != nil {
		return nil, err
	}
	logger.Info("remote render finished",
		logger.String("function", r.function),
		logger.String("key", key),
		logger.Duration("elapsed", time.Since(start)))

	video, err := r.store.Get(ctx, key)
	if err != nil {
		return &Output{TempKey: key}, err
	}
	return &Output{Video: video, TempKey: key}, nil
}

func parseRenderResponse(payload []byte) (string, error) {
	var resp renderResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", apperr.Protocol("render function returned invalid JSON", err)
	}

	var body renderBody
	raw := resp.Body
	// API-gateway style handlers return body as a JSON string.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return "", apperr.Protocol("render function returned an unexpected body", err)
		}
	}

	if resp.StatusCode != 200 {
		return "", apperr.Protocol(fmt.Sprintf("render function returned status %d: %s", resp.StatusCode, body.Message), nil)
	}
	if body.Key == "" {
		return "", apperr.Protocol("render function returned no video key", nil)
	}
	return body.Key, nil
}
