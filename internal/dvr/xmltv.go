// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

package dvr

import (
	"encoding/xml"
	"time"

	"github.com/tomtom215/dvrwatch/internal/models"
)

// xmltvTimeLayout is the timestamp format used by XMLTV programme
// start/stop attributes: 20060102150405 -0700.
const xmltvTimeLayout = "20060102150405 -0700"

type xmltvDoc struct {
	XMLName    xml.Name         `xml:"tv"`
	Programmes []xmltvProgramme `xml:"programme"`
}

type xmltvProgramme struct {
	Start   string    `xml:"start,attr"`
	Stop    string    `xml:"stop,attr"`
	Channel string    `xml:"channel,attr"`
	Title   string    `xml:"title"`
	Desc    string    `xml:"desc"`
	Icon    xmltvIcon `xml:"icon"`
}

type xmltvIcon struct {
	Src string `xml:"src,attr"`
}

// parseXMLTV flattens an XMLTV document into guide programs. Entries with
// unparseable timestamps are skipped rather than failing the whole guide.
func parseXMLTV(data []byte) ([]models.Program, error) {
	var doc xmltvDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	programs := make([]models.Program, 0, len(doc.Programmes))
	for _, p := range doc.Programmes {
		start, err := time.Parse(xmltvTimeLayout, p.Start)
		if err != nil {
			continue
		}
		stop, err := time.Parse(xmltvTimeLayout, p.Stop)
		if err != nil {
			continue
		}

		programs = append(programs, models.Program{
			ChannelID:   p.Channel,
			Title:       p.Title,
			Description: p.Desc,
			IconURL:     p.Icon.Src,
			Start:       start,
			Stop:        stop,
		})
	}

	return programs, nil
}

// CurrentProgram returns the program airing on a channel at the given
// instant, or false when the guide has no entry covering it.
func CurrentProgram(programs []models.Program, channelID string, at time.Time) (models.Program, bool) {
	for _, p := range programs {
		if p.ChannelID != channelID {
			continue
		}
		if !at.Before(p.Start) && at.Before(p.Stop) {
			return p, true
		}
	}
	return models.Program{}, false
}
