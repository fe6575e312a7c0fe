package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/llm"
	"github.com/Veraticus/deedscan/internal/model"
)

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func TestLLMExtractorFencedReply(t *testing.T) {
	ctx := context.Background()
	client := &mockLLMClient{}
	client.On("Complete", ctx, mock.MatchedBy(func(req llm.Request) bool {
		return req.Temperature == 0 &&
			req.MaxOutputTokens == 8000 &&
			strings.Contains(req.UserPrompt, "Survey 1 Document A") &&
			req.SystemPrompt != ""
	})).Return("```json\n[{\"surveyNumber\":\"1\",\"documentNumber\":\"A\"}]\n```", nil)

	records, err := NewLLMExtractor(client, nil).Extract(ctx, "Survey 1 Document A")
	require.NoError(t, err)
	assert.Equal(t, []model.ExtractedRecord{{SurveyNumber: "1", DocumentNumber: "A"}}, records)
	client.AssertExpectations(t)
}

func TestLLMExtractorObjectReply(t *testing.T) {
	client := &mockLLMClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(`{"surveyNumber":"1","documentNumber":"A"}`, nil)

	_, err := NewLLMExtractor(client, nil).Extract(context.Background(), "text")
	assert.ErrorIs(t, err, common.ErrExtractionFormat)
}

func TestLLMExtractorTransportError(t *testing.T) {
	client := &mockLLMClient{}
	cause := fmt.Errorf("%w: status 503", common.ErrExtractionTransport)
	client.On("Complete", mock.Anything, mock.Anything).Return("", cause)

	_, err := NewLLMExtractor(client, nil).Extract(context.Background(), "text")
	assert.ErrorIs(t, err, common.ErrExtractionTransport)
}

func TestParseRecords(t *testing.T) {
	t.Run("drops records missing a required field", func(t *testing.T) {
		records, dropped, err := ParseRecords(`[
			{"surveyNumber":"12","documentNumber":"D1","buyerName":"Rajesh"},
			{"surveyNumber":"13"},
			{"documentNumber":"D3"},
			{"surveyNumber":"  ","documentNumber":"D4"},
			"not an object",
			{"surveyNumber":"14","documentNumber":null}
		]`)
		require.NoError(t, err)
		assert.Equal(t, 5, dropped)
		require.Len(t, records, 1)
		assert.Equal(t, "Rajesh", records[0].BuyerName)
	})

	t.Run("coerces scalars and aliases", func(t *testing.T) {
		records, dropped, err := ParseRecords(`[{
			"surveyNumber": 123,
			"documentNumber": "2023-001",
			"buyerNameTamil": "ராஜேஷ்",
			"sellerNameTamil": "old",
			"sellerNameNative": "லட்சுமி",
			"transactionValue": "Rs. 1,50,000.00",
			"additionalInfo": {"plot": "7A"}
		}]`)
		require.NoError(t, err)
		assert.Zero(t, dropped)
		require.Len(t, records, 1)

		r := records[0]
		assert.Equal(t, "123", r.SurveyNumber)
		assert.Equal(t, "ராஜேஷ்", r.BuyerNameNative)
		assert.Equal(t, "லட்சுமி", r.SellerNameNative)
		assert.Equal(t, "150000", r.TransactionValue)
		assert.Equal(t, `{"plot":"7A"}`, r.AdditionalInfo)
	})

	t.Run("empty array", func(t *testing.T) {
		records, _, err := ParseRecords("[]")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	formatErrors := []string{
		"",
		"not json",
		`{"surveyNumber":"1"}`,
		`"string"`,
		`[] []`,
	}
	for _, in := range formatErrors {
		t.Run("format error "+in, func(t *testing.T) {
			_, _, err := ParseRecords(in)
			assert.ErrorIs(t, err, common.ErrExtractionFormat)
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n[1]\n```": "[1]",
		"```\n[1]\n```":     "[1]",
		"```[1]```":         "[1]",
		"  [1]  ":           "[1]",
		"```JSON\n[]":       "[]",
	}
	for in, want := range tests {
		assert.Equal(t, want, stripFences(in), "input %q", in)
	}
}

func TestNormalizeValue(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"1500000":       "1500000",
		"15,00,000":     "1500000",
		"₹ 2,50,000/-":  "250000",
		"Rs.75000.50":   "75000.5",
		"INR 1,000":     "1000",
		"not disclosed": "not disclosed",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeValue(in), "input %q", in)
	}
}

func TestRegexExtractor(t *testing.T) {
	text := `Registration Office: Salem
Document: 101
Survey: 45/2
Buyer
Rajesh Kumar
Seller
லட்சுமி
House: 7A
Date: 15/03/2023
Value: Rs 1,50,000
District: Salem
Village: Attur

Document: 102
Survey: 46
Buyer
Murugan

Document: 103
Buyer
No survey on this one`

	records, err := NewRegexExtractor(nil).Extract(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, model.ExtractedRecord{
		SurveyNumber:     "45/2",
		DocumentNumber:   "101",
		BuyerName:        "Rajesh Kumar",
		SellerNameNative: "லட்சுமி",
		HouseNumber:      "7A",
		TransactionDate:  "15/03/2023",
		TransactionValue: "150000",
		District:         "Salem",
		Village:          "Attur",
	}, records[0])
	assert.Equal(t, "102", records[1].DocumentNumber)
	assert.Equal(t, "Murugan", records[1].BuyerName)
}

func TestNew(t *testing.T) {
	client := &mockLLMClient{}

	e, err := New(KindLLM, client, nil)
	require.NoError(t, err)
	assert.IsType(t, &LLMExtractor{}, e)

	_, err = New(KindLLM, nil, nil)
	assert.ErrorIs(t, err, common.ErrPipelineFatal)

	e, err = New(KindRegex, client, nil)
	require.NoError(t, err)
	assert.IsType(t, &RegexExtractor{}, e)

	e, err = New(KindAuto, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &RegexExtractor{}, e)

	e, err = New(KindAuto, client, nil)
	require.NoError(t, err)
	assert.IsType(t, &LLMExtractor{}, e)

	_, err = New("magic", client, nil)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}
