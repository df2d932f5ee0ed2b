package backend

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanInput(t *testing.T) {
	t.Run("nil cursor scans everything", func(t *testing.T) {
		input, err := scanInput("underway", nil)
		require.NoError(t, err)
		assert.Equal(t, "underway", *input.TableName)
		assert.Nil(t, input.FilterExpression)
	})

	t.Run("cursor keeps sub-second precision", func(t *testing.T) {
		since := time.Unix(1700000000, 250000000).UTC()
		input, err := scanInput("underway", &since)
		require.NoError(t, err)
		require.NotNil(t, input.FilterExpression)

		// A cursor formatted to whole seconds would compare less than
		// the boundary row's stored timestamp and re-fetch it forever.
		var bounds []string
		for _, av := range input.ExpressionAttributeValues {
			if s, ok := av.(*types.AttributeValueMemberS); ok {
				bounds = append(bounds, s.Value)
			}
		}
		require.Len(t, bounds, 1)
		assert.Equal(t, "2023-11-14T22:13:20.25Z", bounds[0])
	})
}

func TestRowFromItem(t *testing.T) {
	item := map[string]types.AttributeValue{
		"datetime_utc": &types.AttributeValueMemberS{Value: "2023-11-14T22:13:20Z"},
		"ph_total":     &types.AttributeValueMemberN{Value: "8.0712345678901234"},
		"temp":         &types.AttributeValueMemberN{Value: "14"},
		"flag":         &types.AttributeValueMemberBOOL{Value: true},
		"salinity":     &types.AttributeValueMemberNULL{Value: true},
		"bad_number":   &types.AttributeValueMemberN{Value: "NaN-ish"},
		"track":        &types.AttributeValueMemberL{},
	}

	row := rowFromItem(item)

	assert.Equal(t, "2023-11-14T22:13:20Z", row[TimeColumn])

	// Number attributes keep their full precision until normalization.
	ph, ok := row["ph_total"].(decimal.Decimal)
	require.True(t, ok, "expected decimal, got %T", row["ph_total"])
	want, err := decimal.NewFromString("8.0712345678901234")
	require.NoError(t, err)
	assert.True(t, ph.Equal(want))

	temp, ok := row["temp"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, temp.Equal(decimal.NewFromInt(14)))

	assert.Equal(t, true, row["flag"])

	v, present := row["salinity"]
	assert.True(t, present)
	assert.Nil(t, v)

	// Unparseable numbers and unsupported attribute types are skipped.
	_, present = row["bad_number"]
	assert.False(t, present)
	_, present = row["track"]
	assert.False(t, present)
}
