package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/pkg/metrics"
)

// ListMessages returns the room history in seq order.
func (s *Store) ListMessages(ctx context.Context, roomID string) ([]domain.Message, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Messages),
		KeyConditionExpression: aws.String("#id = :id"),
		ExpressionAttributeNames: map[string]string{
			"#id": fieldRoomID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: roomID},
		},
		ConsistentRead:   aws.Bool(true),
		ScanIndexForward: aws.Bool(true),
	})

	msgs := []domain.Message{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeErr("list messages", err)
		}
		var batch []domain.Message
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
		msgs = append(msgs, batch...)
	}
	return msgs, nil
}

// AppendMessage stores msg as the next message of the room and fills in its
// Seq, RoomID and ServerTimestamp. A zero ServerTimestamp means "now".
//
// The room's message_count acts as a version: the room update and the message
// put commit together only if no other writer advanced the count in between.
// Losing writers reread the room and retry.
func (s *Store) AppendMessage(ctx context.Context, roomID string, msg *domain.Message) error {
	receivedAt := msg.ServerTimestamp
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		room, err := s.getRoom(ctx, roomID)
		if err != nil {
			return err
		}

		next := *msg
		next.RoomID = roomID
		next.Seq = room.MessageCount + 1
		next.ServerTimestamp = domain.NextTimestamp(receivedAt, room.LastMessageAt)

		input, err := s.appendTransaction(room.MessageCount, &next)
		if err != nil {
			return err
		}
		_, err = s.client.TransactWriteItems(ctx, input)
		if err == nil {
			*msg = next
			return nil
		}
		if !conditionFailed(err) {
			return storeErr("append message", err)
		}
		metrics.RecordWriteRetry("dynamo")
	}
	return fmt.Errorf("append message to %s: too many concurrent writers: %w", roomID, domain.ErrConflict)
}

// appendTransaction advances the room counter from expected to msg.Seq and
// puts msg, both conditional.
func (s *Store) appendTransaction(expected int64, msg *domain.Message) (*dynamodb.TransactWriteItemsInput, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldMessageCount:  msg.Seq,
		fieldLastMessageAt: msg.ServerTimestamp,
	})
	if err != nil {
		return nil, err
	}
	ue.Names["#id"] = fieldRoomID
	ue.Names["#count"] = fieldMessageCount
	ue.Values[":expected"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)}

	item, err := attributevalue.MarshalMap(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	return &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:                 aws.String(s.tables.Rooms),
				Key:                       strKey(fieldRoomID, msg.RoomID),
				UpdateExpression:          aws.String(ue.Expr),
				ConditionExpression:       aws.String("attribute_exists(#id) AND #count = :expected"),
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
			}},
			{Put: &types.Put{
				TableName:                aws.String(s.tables.Messages),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#seq)"),
				ExpressionAttributeNames: map[string]string{"#seq": fieldSeq},
			}},
		},
	}, nil
}
