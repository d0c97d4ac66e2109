package entsoe

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	timeseries "energy-surplus/internal/timeseries/domain"
)

const loadXML = `<?xml version="1.0" encoding="UTF-8"?>
<GL_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-6:generationloaddocument:3:0">
  <TimeSeries>
    <outBiddingZone_Domain.mRID codingScheme="A01">10YHU-MAVIR----U</outBiddingZone_Domain.mRID>
    <Period>
      <timeInterval><start>2023-01-01T00:00Z</start><end>2023-01-01T01:00Z</end></timeInterval>
      <resolution>PT15M</resolution>
      <Point><position>3</position><quantity>4300</quantity></Point>
      <Point><position>1</position><quantity>4100</quantity></Point>
      <Point><position>2</position><quantity>4200</quantity></Point>
      <Point><position>4</position><quantity>4400</quantity></Point>
    </Period>
  </TimeSeries>
</GL_MarketDocument>`

const generationXML = `<?xml version="1.0" encoding="UTF-8"?>
<GL_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-6:generationloaddocument:3:0">
  <TimeSeries>
    <inBiddingZone_Domain.mRID codingScheme="A01">10YHU-MAVIR----U</inBiddingZone_Domain.mRID>
    <MktPSRType><psrType>B16</psrType></MktPSRType>
    <Period>
      <timeInterval><start>2023-01-01T00:00Z</start><end>2023-01-01T02:00Z</end></timeInterval>
      <resolution>PT60M</resolution>
      <Point><position>1</position><quantity>10</quantity></Point>
      <Point><position>2</position><quantity>20</quantity></Point>
    </Period>
  </TimeSeries>
  <TimeSeries>
    <inBiddingZone_Domain.mRID codingScheme="A01">10YHU-MAVIR----U</inBiddingZone_Domain.mRID>
    <MktPSRType><psrType>B19</psrType></MktPSRType>
    <Period>
      <timeInterval><start>2023-01-01T00:00Z</start><end>2023-01-01T01:00Z</end></timeInterval>
      <resolution>PT30M</resolution>
      <Point><position>1</position><quantity>5</quantity></Point>
      <Point><position>2</position><quantity>6</quantity></Point>
    </Period>
  </TimeSeries>
  <TimeSeries>
    <outBiddingZone_Domain.mRID codingScheme="A01">10YHU-MAVIR----U</outBiddingZone_Domain.mRID>
    <MktPSRType><psrType>B10</psrType></MktPSRType>
    <Period>
      <timeInterval><start>2023-01-01T00:00Z</start><end>2023-01-01T01:00Z</end></timeInterval>
      <resolution>PT60M</resolution>
      <Point><position>1</position><quantity>99</quantity></Point>
    </Period>
  </TimeSeries>
</GL_MarketDocument>`

const ackXML = `<?xml version="1.0" encoding="UTF-8"?>
<Acknowledgement_MarketDocument xmlns="urn:iec62325.351:tc57wg16:451-1:acknowledgementdocument:7:0">
  <mRID>abc</mRID>
  <Reason>
    <code>999</code>
    <text>No matching data found for Data item Actual Total Load</text>
  </Reason>
</Acknowledgement_MarketDocument>`

func TestParseLoadDocument(t *testing.T) {
	points, err := ParseLoadDocument(strings.NewReader(loadXML))
	require.NoError(t, err)
	require.Len(t, points, 4)

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range points {
		assert.Equal(t, start.Add(time.Duration(i+1)*15*time.Minute), p.EndTime)
		assert.Equal(t, "10YHU-MAVIR----U", p.AreaID)
		assert.Equal(t, float64(4100+100*i), p.Quantity)
	}
}

func TestParseGenerationDocument(t *testing.T) {
	byType, err := ParseGenerationDocument(strings.NewReader(generationXML))
	require.NoError(t, err)
	require.Len(t, byType, 2)
	assert.NotContains(t, byType, timeseries.EnergyType("B10"))

	solar := byType["B16"]
	require.Len(t, solar, 2)
	assert.Equal(t, time.Date(2023, 1, 1, 1, 0, 0, 0, time.UTC), solar[0].EndTime)
	assert.Equal(t, time.Date(2023, 1, 1, 2, 0, 0, 0, time.UTC), solar[1].EndTime)
	assert.Equal(t, float64(20), solar[1].Quantity)

	wind := byType["B19"]
	require.Len(t, wind, 2)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 30, 0, 0, time.UTC), wind[0].EndTime)
	assert.EqualValues(t, "B19", wind[0].PsrType)
}

func TestParseDocument_Acknowledgement(t *testing.T) {
	_, err := ParseLoadDocument(strings.NewReader(ackXML))
	require.True(t, errors.Is(err, ErrNoData))
	assert.Contains(t, err.Error(), "No matching data found")

	_, err = ParseGenerationDocument(strings.NewReader(ackXML))
	require.ErrorIs(t, err, ErrNoData)
}

func TestParseDocument_Unexpected(t *testing.T) {
	_, err := ParseLoadDocument(strings.NewReader(`<Publication_MarketDocument/>`))
	require.ErrorIs(t, err, ErrUnexpectedDocument)

	_, err = ParseLoadDocument(strings.NewReader(``))
	require.Error(t, err)
}

func TestParseResolution(t *testing.T) {
	cases := map[string]time.Duration{
		"PT15M": 15 * time.Minute,
		"PT30M": 30 * time.Minute,
		"PT60M": time.Hour,
		"PT1H":  time.Hour,
		"P1D":   24 * time.Hour,
	}
	for value, want := range cases {
		got, err := ParseResolution(value)
		require.NoError(t, err, value)
		assert.Equal(t, want, got, value)
	}
	for _, bad := range []string{"", "PT0M", "P1Y", "PTxM"} {
		_, err := ParseResolution(bad)
		assert.ErrorIs(t, err, ErrUnsupportedResolution, bad)
	}
}

func TestSelectRegions(t *testing.T) {
	all, err := SelectRegions(DefaultRegions(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 9)

	picked, err := SelectRegions(DefaultRegions(), []timeseries.CountryCode{"DE", "HU"})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "10Y1001A1001A83F", picked[0].Area)

	_, err = SelectRegions(DefaultRegions(), []timeseries.CountryCode{"XX"})
	assert.ErrorIs(t, err, ErrUnknownRegion)
}
