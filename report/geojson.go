// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"io"
	"time"

	"github.com/jcodagnone/safires/fires"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection converts enriched records into point features. Properties
// without a value are left out.
func FeatureCollection(records []*fires.EnrichedFireRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, r := range records {
		f := geojson.NewFeature(r.Point().Orb())
		f.ID = r.RecordID

		props := f.Properties
		props["record_id"] = r.RecordID
		props["confidence"] = r.Confidence
		props["acquisition_date"] = r.AcquisitionDate.Format(time.DateOnly)

		if r.AcquiredAt != nil {
			props["acquired_at"] = r.AcquiredAt.Format(time.RFC3339)
		}

		if r.Satellite != "" {
			props["satellite"] = r.Satellite
		}

		if r.Instrument != "" {
			props["instrument"] = r.Instrument
		}

		if r.FRP != nil {
			props["frp"] = *r.FRP
		}

		if r.Country != "" {
			props["country"] = r.Country
		}

		if r.BorderDistance != nil {
			props["border_distance_m"] = *r.BorderDistance
		}

		if r.AvgDistance != nil {
			props["avg_distance_m"] = *r.AvgDistance
		}

		if r.H3Cell != 0 {
			props["h3_cell"] = r.H3Cell.String()
		}

		if r.ClusterID != 0 {
			props["cluster_id"] = r.ClusterID
		}

		fc.Append(f)
	}

	return fc
}

// WriteGeoJSON writes records to name as a GeoJSON FeatureCollection.
func (w *Writer) WriteGeoJSON(name string, records []*fires.EnrichedFireRecord) error {
	return w.write(name, func(out io.Writer) error {
		data, err := FeatureCollection(records).MarshalJSON()
		if err != nil {
			return err
		}

		_, err = out.Write(data)

		return err
	})
}
