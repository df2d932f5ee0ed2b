package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/blongworth/locness-dash/internal/log"
)

// DynamoDBAdapter reads observations from a DynamoDB table. Timestamps
// are stored as ISO-8601 strings, so the incremental predicate is a plain
// lexicographic comparison; numeric attributes arrive as arbitrary-
// precision numbers and are kept as decimals until normalization.
type DynamoDBAdapter struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoDB(ctx context.Context, table, region string) (*DynamoDBAdapter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &DynamoDBAdapter{
		client: dynamodb.NewFromConfig(awsCfg),
		table:  table,
	}, nil
}

func (a *DynamoDBAdapter) Name() string { return "dynamodb" }

func (a *DynamoDBAdapter) Fetch(ctx context.Context, since *time.Time) ([]Row, error) {
	input, err := scanInput(a.table, since)
	if err != nil {
		return nil, err
	}

	// Collect every page before returning so a mid-scan failure yields
	// nothing instead of a partial fetch.
	var out []Row
	paginator := dynamodb.NewScanPaginator(a.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, unavailable("dynamodb scan", err)
		}
		for _, item := range page.Items {
			out = append(out, rowFromItem(item))
		}
	}
	return out, nil
}

// scanInput builds the scan request. The cursor keeps full nanosecond
// precision so the strictly-greater predicate excludes exactly the
// boundary row; truncating to whole seconds would re-fetch a
// sub-second-stamped boundary row every cycle.
func scanInput(table string, since *time.Time) (*dynamodb.ScanInput, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(table),
	}
	if since == nil {
		return input, nil
	}

	filt := expression.Name(TimeColumn).
		GreaterThan(expression.Value(since.UTC().Format(time.RFC3339Nano)))
	expr, err := expression.NewBuilder().WithFilter(filt).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan filter: %w", err)
	}
	input.FilterExpression = expr.Filter()
	input.ExpressionAttributeNames = expr.Names()
	input.ExpressionAttributeValues = expr.Values()
	return input, nil
}

// rowFromItem flattens a DynamoDB item into a Row. Number attributes keep
// their full precision as decimal.Decimal; unsupported attribute types
// (sets, lists, maps, binary) are skipped.
func rowFromItem(item map[string]types.AttributeValue) Row {
	row := make(Row, len(item))
	for name, av := range item {
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			row[name] = v.Value
		case *types.AttributeValueMemberN:
			d, err := decimal.NewFromString(v.Value)
			if err != nil {
				log.Logger.Debugf("dynamodb: unparseable number attribute %s=%q", name, v.Value)
				continue
			}
			row[name] = d
		case *types.AttributeValueMemberBOOL:
			row[name] = v.Value
		case *types.AttributeValueMemberNULL:
			row[name] = nil
		}
	}
	return row
}
