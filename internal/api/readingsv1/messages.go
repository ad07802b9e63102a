// Package readingsv1 defines the octosync.readings.v1.ReadingService gRPC
// API: its messages, service descriptor, client and the JSON codec the
// messages travel in.
package readingsv1

import "google.golang.org/protobuf/types/known/timestamppb"

// Energy type values carried in EnergyType fields.
const (
	EnergyTypeElectricity = "electricity"
	EnergyTypeGas         = "gas"
)

type Reading struct {
	EnergyType    string                 `json:"energy_type"`
	IntervalStart *timestamppb.Timestamp `json:"interval_start"`
	IntervalEnd   *timestamppb.Timestamp `json:"interval_end"`
	Consumption   float64                `json:"consumption"`
}

func (x *Reading) GetEnergyType() string {
	if x != nil {
		return x.EnergyType
	}
	return ""
}

func (x *Reading) GetIntervalStart() *timestamppb.Timestamp {
	if x != nil {
		return x.IntervalStart
	}
	return nil
}

func (x *Reading) GetIntervalEnd() *timestamppb.Timestamp {
	if x != nil {
		return x.IntervalEnd
	}
	return nil
}

func (x *Reading) GetConsumption() float64 {
	if x != nil {
		return x.Consumption
	}
	return 0
}

type ListReadingsRequest struct {
	EnergyType string `json:"energy_type"`
	// Start and End filter on interval start, [Start, End). Both optional.
	Start     *timestamppb.Timestamp `json:"start,omitempty"`
	End       *timestamppb.Timestamp `json:"end,omitempty"`
	PageSize  int32                  `json:"page_size,omitempty"`
	PageToken string                 `json:"page_token,omitempty"`
}

func (x *ListReadingsRequest) GetEnergyType() string {
	if x != nil {
		return x.EnergyType
	}
	return ""
}

func (x *ListReadingsRequest) GetStart() *timestamppb.Timestamp {
	if x != nil {
		return x.Start
	}
	return nil
}

func (x *ListReadingsRequest) GetEnd() *timestamppb.Timestamp {
	if x != nil {
		return x.End
	}
	return nil
}

func (x *ListReadingsRequest) GetPageSize() int32 {
	if x != nil {
		return x.PageSize
	}
	return 0
}

func (x *ListReadingsRequest) GetPageToken() string {
	if x != nil {
		return x.PageToken
	}
	return ""
}

type ListReadingsResponse struct {
	Readings      []*Reading `json:"readings"`
	NextPageToken string     `json:"next_page_token,omitempty"`
}

func (x *ListReadingsResponse) GetReadings() []*Reading {
	if x != nil {
		return x.Readings
	}
	return nil
}

func (x *ListReadingsResponse) GetNextPageToken() string {
	if x != nil {
		return x.NextPageToken
	}
	return ""
}

type LatestReadingRequest struct {
	EnergyType string `json:"energy_type"`
}

func (x *LatestReadingRequest) GetEnergyType() string {
	if x != nil {
		return x.EnergyType
	}
	return ""
}

type LatestReadingResponse struct {
	Reading *Reading `json:"reading"`
}

func (x *LatestReadingResponse) GetReading() *Reading {
	if x != nil {
		return x.Reading
	}
	return nil
}
