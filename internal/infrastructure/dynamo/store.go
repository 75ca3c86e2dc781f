package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-verification-room/internal/config"
	"github.com/go-verification-room/internal/domain"
)

// maxAppendAttempts bounds the optimistic retry loop of AppendMessage.
const maxAppendAttempts = 16

// Store persists candidates, rooms and room messages in three DynamoDB tables.
//
//	candidates: PK candidate_id, GSI created_by-created_at-index
//	rooms:      PK room_id
//	messages:   PK room_id, SK seq (N)
type Store struct {
	client *dynamodb.Client
	tables config.DynamoTables
	now    func() time.Time
}

func NewStore(client *dynamodb.Client, tables config.DynamoTables) *Store {
	return &Store{
		client: client,
		tables: tables,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks that the rooms table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tables.Rooms),
	})
	if err != nil {
		return fmt.Errorf("describe %s: %v: %w", s.tables.Rooms, err, domain.ErrUnavailable)
	}
	return nil
}
