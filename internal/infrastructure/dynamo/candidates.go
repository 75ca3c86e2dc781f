package dynamo

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-verification-room/internal/domain"
)

func (s *Store) GetCandidate(ctx context.Context, candidateID string) (*domain.Candidate, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Candidates),
		Key:       strKey(fieldCandidateID, candidateID),
	})
	if err != nil {
		return nil, storeErr("get candidate", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("candidate %s: %w", candidateID, domain.ErrNotFound)
	}
	var c domain.Candidate
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal candidate: %w", err)
	}
	return &c, nil
}

// ListCandidatesByRecruiter queries the created_by-created_at GSI, newest first.
func (s *Store) ListCandidatesByRecruiter(ctx context.Context, recruiterEmail string) ([]domain.Candidate, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Candidates),
		IndexName:              aws.String(indexCreatedByCreatedAt),
		KeyConditionExpression: aws.String("#by = :by"),
		ExpressionAttributeNames: map[string]string{
			"#by": fieldCreatedBy,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":by": &types.AttributeValueMemberS{Value: recruiterEmail},
		},
		ScanIndexForward: aws.Bool(false),
	})

	candidates := []domain.Candidate{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeErr("list candidates", err)
		}
		var batch []domain.Candidate
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal candidates: %w", err)
		}
		candidates = append(candidates, batch...)
	}
	// RFC 3339 strings with trimmed fractions do not always sort like times.
	slices.SortStableFunc(candidates, func(a, b domain.Candidate) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return candidates, nil
}
