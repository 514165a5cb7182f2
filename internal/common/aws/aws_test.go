package aws

import (
	"context"
	"encoding/json"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSNS struct {
	mock.Mock
}

func (m *MockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

type MockSES struct {
	mock.Mock
}

func (m *MockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ses.SendEmailOutput), args.Error(1)
}

func TestSNSClient_PublishJSON(t *testing.T) {
	api := new(MockSNS)
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var body map[string]string
		if err := json.Unmarshal([]byte(awssdk.ToString(in.Message)), &body); err != nil {
			return false
		}
		attr, ok := in.MessageAttributes["status"]
		return awssdk.ToString(in.TopicArn) == "arn:aws:sns:us-east-1:1:tickets" &&
			awssdk.ToString(in.Subject) == "ticket fulfilled" &&
			body["contentHash"] == "Qm123" &&
			ok && awssdk.ToString(attr.StringValue) == "succeeded"
	})).Return(&sns.PublishOutput{MessageId: awssdk.String("msg-1")}, nil)

	client := &SNSClient{client: api}
	id, err := client.PublishJSON(context.Background(), "arn:aws:sns:us-east-1:1:tickets", "ticket fulfilled",
		map[string]string{"contentHash": "Qm123"}, map[string]string{"status": "succeeded"})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	api.AssertExpectations(t)
}

func TestSNSClient_PublishJSON_Error(t *testing.T) {
	api := new(MockSNS)
	api.On("Publish", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	client := &SNSClient{client: api}
	_, err := client.PublishJSON(context.Background(), "arn", "", map[string]string{}, nil)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSESClient_SendText(t *testing.T) {
	api := new(MockSES)
	api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return awssdk.ToString(in.Source) == "ops@example.com" &&
			assert.ObjectsAreEqual([]string{"oncall@example.com"}, in.Destination.ToAddresses) &&
			awssdk.ToString(in.Message.Subject.Data) == "alert" &&
			awssdk.ToString(in.Message.Body.Text.Data) == "imageApiKey is not set"
	})).Return(&ses.SendEmailOutput{MessageId: awssdk.String("mail-1")}, nil)

	client := &SESClient{client: api}
	id, err := client.SendText(context.Background(), "ops@example.com", []string{"oncall@example.com"}, "alert", "imageApiKey is not set")

	require.NoError(t, err)
	assert.Equal(t, "mail-1", id)
	api.AssertExpectations(t)
}

func TestSESClient_SendText_RequiresRecipient(t *testing.T) {
	client := &SESClient{client: new(MockSES)}
	_, err := client.SendText(context.Background(), "ops@example.com", nil, "alert", "body")
	assert.Error(t, err)
}
