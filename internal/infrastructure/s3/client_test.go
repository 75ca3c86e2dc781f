package s3infra

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPutAPI struct{ mock.Mock }

func (m *mockPutAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func offlineClient() *s3.Client {
	return s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
	})
}

func TestPutTranscript(t *testing.T) {
	api := &mockPutAPI{}
	var in *s3.PutObjectInput
	api.On("PutObject", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { in = args.Get(1).(*s3.PutObjectInput) }).
		Return(&s3.PutObjectOutput{}, nil)

	s := &Store{client: api, bucket: "transcripts"}
	require.NoError(t, s.PutTranscript(context.Background(), "transcripts/room-1/x.json", []byte(`{"roomId":"room-1"}`)))

	assert.Equal(t, "transcripts", aws.ToString(in.Bucket))
	assert.Equal(t, "transcripts/room-1/x.json", aws.ToString(in.Key))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	body, err := io.ReadAll(in.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"roomId":"room-1"}`, string(body))
}

func TestPutTranscript_Error(t *testing.T) {
	api := &mockPutAPI{}
	api.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	s := &Store{client: api, bucket: "b"}
	assert.ErrorContains(t, s.PutTranscript(context.Background(), "k", nil), "access denied")
}

func TestPresignedURL(t *testing.T) {
	s := NewStore(offlineClient(), "verification-transcripts")

	url, err := s.PresignedURL(context.Background(), "transcripts/room-1/x.json", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "verification-transcripts")
	assert.Contains(t, url, "transcripts/room-1/x.json")
	assert.Contains(t, url, "X-Amz-Expires=900")
}
