package entsoe

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	timeseries "energy-surplus/internal/timeseries/domain"
)

var (
	ErrNoData                = errors.New("entsoe: no matching data")
	ErrUnsupportedResolution = errors.New("entsoe: unsupported resolution")
	ErrUnexpectedDocument    = errors.New("entsoe: unexpected document")
	ErrUnknownRegion         = errors.New("entsoe: unknown region")
)

const acknowledgementRoot = "Acknowledgement_MarketDocument"

// Point is one quantity reported at the end of its interval.
type Point struct {
	EndTime  time.Time
	AreaID   string
	PsrType  timeseries.EnergyType
	Quantity float64
}

type marketDocument struct {
	XMLName    xml.Name     `xml:"GL_MarketDocument"`
	TimeSeries []timeSeries `xml:"TimeSeries"`
}

type timeSeries struct {
	InDomain  string   `xml:"inBiddingZone_Domain.mRID"`
	OutDomain string   `xml:"outBiddingZone_Domain.mRID"`
	PsrType   string   `xml:"MktPSRType>psrType"`
	Periods   []period `xml:"Period"`
}

type period struct {
	Start      string  `xml:"timeInterval>start"`
	End        string  `xml:"timeInterval>end"`
	Resolution string  `xml:"resolution"`
	Points     []point `xml:"Point"`
}

type point struct {
	Position int     `xml:"position"`
	Quantity float64 `xml:"quantity"`
}

type acknowledgement struct {
	Reasons []struct {
		Code string `xml:"code"`
		Text string `xml:"text"`
	} `xml:"Reason"`
}

// ParseLoadDocument parses an A65 load document.
func ParseLoadDocument(r io.Reader) ([]Point, error) {
	doc, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}
	var out []Point
	for _, series := range doc.TimeSeries {
		points, err := series.points(series.OutDomain, "")
		if err != nil {
			return nil, err
		}
		out = append(out, points...)
	}
	sortPoints(out)
	return out, nil
}

// ParseGenerationDocument parses an A75 generation document into points keyed
// by production type. Consumption series, which only carry an out domain, are
// skipped.
func ParseGenerationDocument(r io.Reader) (map[timeseries.EnergyType][]Point, error) {
	doc, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}
	out := make(map[timeseries.EnergyType][]Point)
	for _, series := range doc.TimeSeries {
		if series.InDomain == "" || series.PsrType == "" {
			continue
		}
		psrType := timeseries.EnergyType(series.PsrType)
		points, err := series.points(series.InDomain, psrType)
		if err != nil {
			return nil, err
		}
		out[psrType] = append(out[psrType], points...)
	}
	for psrType := range out {
		sortPoints(out[psrType])
	}
	return out, nil
}

func decodeDocument(r io.Reader) (marketDocument, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return marketDocument{}, err
	}
	root, err := rootElement(body)
	if err != nil {
		return marketDocument{}, err
	}
	switch root {
	case acknowledgementRoot:
		var ack acknowledgement
		if err := xml.Unmarshal(body, &ack); err != nil {
			return marketDocument{}, fmt.Errorf("entsoe: decode acknowledgement: %w", err)
		}
		if len(ack.Reasons) > 0 && ack.Reasons[0].Text != "" {
			return marketDocument{}, fmt.Errorf("%w: %s", ErrNoData, ack.Reasons[0].Text)
		}
		return marketDocument{}, ErrNoData
	case "GL_MarketDocument":
	default:
		return marketDocument{}, fmt.Errorf("%w: %s", ErrUnexpectedDocument, root)
	}
	var doc marketDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return marketDocument{}, fmt.Errorf("entsoe: decode document: %w", err)
	}
	return doc, nil
}

func rootElement(body []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		token, err := decoder.Token()
		if err != nil {
			return "", fmt.Errorf("entsoe: read document: %w", err)
		}
		if start, ok := token.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func (s timeSeries) points(area string, psrType timeseries.EnergyType) ([]Point, error) {
	var out []Point
	for _, p := range s.Periods {
		start, err := parseInstant(p.Start)
		if err != nil {
			return nil, err
		}
		step, err := ParseResolution(p.Resolution)
		if err != nil {
			return nil, err
		}
		for _, pt := range p.Points {
			out = append(out, Point{
				EndTime:  start.Add(time.Duration(pt.Position) * step),
				AreaID:   area,
				PsrType:  psrType,
				Quantity: pt.Quantity,
			})
		}
	}
	return out, nil
}

// ParseResolution converts an ISO-8601 resolution such as PT15M or P1D.
func ParseResolution(value string) (time.Duration, error) {
	var (
		digits string
		unit   time.Duration
	)
	switch {
	case strings.HasPrefix(value, "PT") && strings.HasSuffix(value, "M"):
		digits, unit = strings.TrimSuffix(strings.TrimPrefix(value, "PT"), "M"), time.Minute
	case strings.HasPrefix(value, "PT") && strings.HasSuffix(value, "H"):
		digits, unit = strings.TrimSuffix(strings.TrimPrefix(value, "PT"), "H"), time.Hour
	case strings.HasPrefix(value, "P") && strings.HasSuffix(value, "D"):
		digits, unit = strings.TrimSuffix(strings.TrimPrefix(value, "P"), "D"), 24*time.Hour
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedResolution, value)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedResolution, value)
	}
	return time.Duration(n) * unit, nil
}

func parseInstant(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04Z", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("entsoe: invalid interval start %q", value)
}

func sortPoints(points []Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].EndTime.Before(points[j].EndTime)
	})
}
