package report

import (
	"encoding/xml"
	"io"
)

// Deprecated: XML output is kept only for parity with older tooling that
// still expects it; prefer JSON or CSV. Mirrors talp_output's
// pop_metrics_to_xml/node_to_xml/process_to_xml.
type xmlPop struct {
	XMLName xml.Name `xml:"popMetrics"`
	Name    string   `xml:"name"`
	popJSON
}

type xmlNodeProcess struct {
	ID         int   `xml:"id"`
	UsefulTime int64 `xml:"usefulTime"`
	MPITime    int64 `xml:"mpiTime"`
}

type xmlNode struct {
	XMLName xml.Name         `xml:"node"`
	ID      int              `xml:"id"`
	Process []xmlNodeProcess `xml:"process"`
	NodeAvg nodeTimesJSON    `xml:"nodeAvg"`
	NodeMax nodeTimesJSON    `xml:"nodeMax"`
}

type xmlProcessEntry struct {
	XMLName xml.Name `xml:"process"`
	processEntryJSON
}

type xmlRegion struct {
	XMLName xml.Name          `xml:"region"`
	Name    string            `xml:"name"`
	Process []xmlProcessEntry `xml:"process"`
}

type xmlDocument struct {
	XMLName xml.Name    `xml:"talp"`
	Pop     []xmlPop    `xml:"popMetrics"`
	Node    []xmlNode   `xml:"node"`
	Region  []xmlRegion `xml:"region"`
}

// WriteXML renders doc as XML. Deprecated: see the note at the top of
// this file.
func WriteXML(w io.Writer, doc Document) error {
	dj := toDocumentJSON(doc)

	out := xmlDocument{}
	for name, p := range dj.PopMetrics {
		out.Pop = append(out.Pop, xmlPop{Name: name, popJSON: p})
	}
	for _, n := range dj.Node {
		xn := xmlNode{ID: n.ID, NodeAvg: n.NodeAvg, NodeMax: n.NodeMax}
		for _, p := range n.Process {
			xn.Process = append(xn.Process, xmlNodeProcess(p))
		}
		out.Node = append(out.Node, xn)
	}
	for _, r := range dj.Region {
		xr := xmlRegion{Name: r.Name}
		for _, p := range r.Process {
			xr.Process = append(xr.Process, xmlProcessEntry{processEntryJSON: p})
		}
		out.Region = append(out.Region, xr)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(out)
}
