package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-verification-room/internal/config"
	"github.com/go-verification-room/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTables = config.DynamoTables{Candidates: "candidates", Rooms: "rooms", Messages: "messages"}

func testRoom(t *testing.T) (*domain.Candidate, *domain.Room) {
	t.Helper()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	c := &domain.Candidate{
		CandidateID:    "01HX",
		Name:           "Ann",
		Email:          "ann@x.io",
		EmployerEmail:  "hr@y.io",
		RecruiterEmail: "rec@z.io",
		RoomID:         "room-1",
		Status:         domain.CandidateStatusPending,
		CreatedAt:      now,
	}
	return c, domain.NewRoom("room-1", c, now)
}

func TestCreateRoomTransaction_ConditionalPuts(t *testing.T) {
	s := &Store{tables: testTables}
	c, room := testRoom(t)

	in, err := s.createRoomTransaction(c, room)
	require.NoError(t, err)
	require.Len(t, in.TransactItems, 2)

	cand := in.TransactItems[0].Put
	assert.Equal(t, "candidates", aws.ToString(cand.TableName))
	assert.Equal(t, "attribute_not_exists(#id)", aws.ToString(cand.ConditionExpression))
	assert.Equal(t, fieldCandidateID, cand.ExpressionAttributeNames["#id"])

	roomPut := in.TransactItems[1].Put
	assert.Equal(t, "rooms", aws.ToString(roomPut.TableName))
	assert.Equal(t, fieldRoomID, roomPut.ExpressionAttributeNames["#id"])
	_, hasMessages := roomPut.Item["messages"]
	assert.False(t, hasMessages, "messages live in their own table")

	parts, ok := roomPut.Item[fieldParticipants].(*types.AttributeValueMemberM)
	require.True(t, ok)
	recruiter := parts.Value["recruiter"].(*types.AttributeValueMemberM)
	_, recruiterJoined := recruiter.Value[fieldJoinedAt]
	assert.True(t, recruiterJoined)
	candidate := parts.Value["candidate"].(*types.AttributeValueMemberM)
	_, candidateJoined := candidate.Value[fieldJoinedAt]
	assert.False(t, candidateJoined, "unjoined slots must not carry joined_at")
}

func TestMarkJoinedInput(t *testing.T) {
	s := &Store{tables: testTables}

	in, err := s.markJoinedInput("room-1", domain.RoleEmployer, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SET #p.#r.#j = :at", aws.ToString(in.UpdateExpression))
	assert.Equal(t, "employer", in.ExpressionAttributeNames["#r"])
	assert.Contains(t, aws.ToString(in.ConditionExpression), "attribute_not_exists(#p.#r.#j)")
	assert.Equal(t, types.ReturnValuesOnConditionCheckFailureAllOld, in.ReturnValuesOnConditionCheckFailure)

	_, err = s.markJoinedInput("room-1", domain.RoleSystem, time.Now())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAppendTransaction_GuardsMessageCount(t *testing.T) {
	s := &Store{tables: testTables}
	msg := &domain.Message{
		RoomID:          "room-1",
		Seq:             4,
		Sender:          domain.Sender{Name: "Ann", Email: "ann@x.io", Role: domain.RoleCandidate},
		Body:            "hello",
		ServerTimestamp: time.Now().UTC(),
	}

	in, err := s.appendTransaction(3, msg)
	require.NoError(t, err)
	require.Len(t, in.TransactItems, 2)

	upd := in.TransactItems[0].Update
	assert.Equal(t, "rooms", aws.ToString(upd.TableName))
	assert.Equal(t, "attribute_exists(#id) AND #count = :expected", aws.ToString(upd.ConditionExpression))
	expected := upd.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN)
	assert.Equal(t, "3", expected.Value)

	put := in.TransactItems[1].Put
	assert.Equal(t, "messages", aws.ToString(put.TableName))
	seq := put.Item[fieldSeq].(*types.AttributeValueMemberN)
	assert.Equal(t, "4", seq.Value)
	body := put.Item["body"].(*types.AttributeValueMemberS)
	assert.Equal(t, "hello", body.Value)
}

func TestTableDefinitions(t *testing.T) {
	defs := tableDefinitions(testTables)
	require.Len(t, defs, 3)

	assert.Equal(t, "candidates", aws.ToString(defs[0].TableName))
	require.Len(t, defs[0].GlobalSecondaryIndexes, 1)
	assert.Equal(t, indexCreatedByCreatedAt, aws.ToString(defs[0].GlobalSecondaryIndexes[0].IndexName))

	msgs := defs[2]
	require.Len(t, msgs.KeySchema, 2)
	assert.Equal(t, fieldSeq, aws.ToString(msgs.KeySchema[1].AttributeName))
	assert.Equal(t, types.KeyTypeRange, msgs.KeySchema[1].KeyType)
}
