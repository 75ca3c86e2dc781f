package sns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-verification-room/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublishAPI struct{ mock.Mock }

func (m *mockPublishAPI) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestPublishRoomCreated(t *testing.T) {
	api := &mockPublishAPI{}
	var sent *sns.PublishInput
	api.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*sns.PublishInput) }).
		Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil)

	p := &Publisher{client: api, topicARN: "arn:aws:sns:us-east-1:000000000000:rooms"}
	evt := domain.RoomCreated{RoomID: "room-1", CandidateID: "c1", ChatLink: "http://app/chat/room-1", CreatedAt: time.Now().UTC()}
	require.NoError(t, p.PublishRoomCreated(context.Background(), evt))

	require.NotNil(t, sent)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:rooms", aws.ToString(sent.TopicArn))
	assert.Equal(t, EventTypeRoomCreated, aws.ToString(sent.MessageAttributes["event_type"].StringValue))

	var decoded domain.RoomCreated
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(sent.Message)), &decoded))
	assert.Equal(t, "room-1", decoded.RoomID)
}

func TestPublishRoomCreated_Error(t *testing.T) {
	api := &mockPublishAPI{}
	api.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	p := &Publisher{client: api, topicARN: "arn:topic"}
	err := p.PublishRoomCreated(context.Background(), domain.RoomCreated{RoomID: "room-1"})
	assert.ErrorContains(t, err, "throttled")
}
