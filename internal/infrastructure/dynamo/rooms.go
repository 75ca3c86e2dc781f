package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-verification-room/internal/domain"
)

// CreateRoom writes the candidate and its room in one transaction. Neither
// item may already exist.
func (s *Store) CreateRoom(ctx context.Context, c *domain.Candidate, room *domain.Room) error {
	input, err := s.createRoomTransaction(c, room)
	if err != nil {
		return err
	}
	if _, err := s.client.TransactWriteItems(ctx, input); err != nil {
		if conditionFailed(err) {
			return fmt.Errorf("room %s already exists: %w", room.RoomID, domain.ErrConflict)
		}
		return storeErr("create room", err)
	}
	return nil
}

func (s *Store) createRoomTransaction(c *domain.Candidate, room *domain.Room) (*dynamodb.TransactWriteItemsInput, error) {
	candItem, err := attributevalue.MarshalMap(c)
	if err != nil {
		return nil, fmt.Errorf("marshal candidate: %w", err)
	}
	roomItem, err := attributevalue.MarshalMap(room)
	if err != nil {
		return nil, fmt.Errorf("marshal room: %w", err)
	}
	return &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(s.tables.Candidates),
				Item:                     candItem,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": fieldCandidateID},
			}},
			{Put: &types.Put{
				TableName:                aws.String(s.tables.Rooms),
				Item:                     roomItem,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": fieldRoomID},
			}},
		},
	}, nil
}

// FindRoom returns the room with its full message history attached.
func (s *Store) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.ListMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.Messages = msgs
	return room, nil
}

func (s *Store) getRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Rooms),
		Key:            strKey(fieldRoomID, roomID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get room", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}
	var room domain.Room
	if err := attributevalue.UnmarshalMap(out.Item, &room); err != nil {
		return nil, fmt.Errorf("unmarshal room: %w", err)
	}
	return &room, nil
}

// MarkJoined sets the joinedAt of a role slot if it is still unset. It reports
// whether this call performed the transition.
func (s *Store) MarkJoined(ctx context.Context, roomID string, role domain.Role, at time.Time) (bool, error) {
	input, err := s.markJoinedInput(roomID, role, at)
	if err != nil {
		return false, err
	}
	_, err = s.client.UpdateItem(ctx, input)
	if err == nil {
		return true, nil
	}
	var ccfe *types.ConditionalCheckFailedException
	if errors.As(err, &ccfe) {
		if len(ccfe.Item) == 0 {
			return false, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
		}
		return false, nil
	}
	return false, storeErr("mark joined", err)
}

func (s *Store) markJoinedInput(roomID string, role domain.Role, at time.Time) (*dynamodb.UpdateItemInput, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, domain.ErrValidation)
	}
	av, err := attributevalue.Marshal(at)
	if err != nil {
		return nil, fmt.Errorf("marshal joined_at: %w", err)
	}
	return &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tables.Rooms),
		Key:                 strKey(fieldRoomID, roomID),
		UpdateExpression:    aws.String("SET #p.#r.#j = :at"),
		ConditionExpression: aws.String("attribute_exists(#id) AND attribute_not_exists(#p.#r.#j)"),
		ExpressionAttributeNames: map[string]string{
			"#id": fieldRoomID,
			"#p":  fieldParticipants,
			"#r":  string(role),
			"#j":  fieldJoinedAt,
		},
		ExpressionAttributeValues:           map[string]types.AttributeValue{":at": av},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}, nil
}
