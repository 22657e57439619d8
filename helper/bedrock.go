package helper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"
)

// BedrockInvoker is the part of the Bedrock runtime client used to call models.
type BedrockInvoker interface {
	InvokeModelWithContext(ctx aws.Context, input *bedrockruntime.InvokeModelInput, opts ...request.Option) (*bedrockruntime.InvokeModelOutput, error)
}

// NewBedrockClient creates a Bedrock runtime client for region using the
// default AWS credential chain.
func NewBedrockClient(region string) (*bedrockruntime.BedrockRuntime, error) {
	config := aws.NewConfig()
	if region != "" {
		config = config.WithRegion(region)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *config,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, NewError("create aws session", err)
	}

	return bedrockruntime.New(sess), nil
}

// InvokeBedrockModel sends body as JSON to modelID and decodes the response into out.
func InvokeBedrockModel(ctx context.Context, client BedrockInvoker, modelID string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return NewError("marshal bedrock request", err)
	}

	output, err := client.InvokeModelWithContext(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        payload,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return NewError(fmt.Sprintf("invoke %s", modelID), err)
	}

	if err := json.Unmarshal(output.Body, out); err != nil {
		return NewError("decode bedrock response", err)
	}

	return nil
}
