package report

import (
	"encoding/json"
	"io"
)

type popJSON struct {
	NumCPUs                    int     `json:"numCpus"`
	NumMPIRanks                int     `json:"numMpiRanks"`
	NumNodes                   int     `json:"numNodes"`
	AvgCPUs                    float64 `json:"avgCpus"`
	NumMeasurements            int64   `json:"numMeasurements"`
	NumMPICalls                int64   `json:"numMpiCalls"`
	NumOMPParallels            int64   `json:"numOmpParallels"`
	NumOMPTasks                int64   `json:"numOmpTasks"`
	ElapsedTime                int64   `json:"elapsedTime"`
	UsefulTime                 int64   `json:"usefulTime"`
	MPITime                    int64   `json:"mpiTime"`
	OMPLoadImbalanceTime       int64   `json:"ompLoadImbalanceTime"`
	OMPSchedulingTime          int64   `json:"ompSchedulingTime"`
	OMPSerializationTime       int64   `json:"ompSerializationTime"`
	ParallelEfficiency         float64 `json:"parallelEfficiency"`
	MPIParallelEfficiency      float64 `json:"mpiParallelEfficiency"`
	MPICommunicationEfficiency float64 `json:"mpiCommunicationEfficiency"`
	MPILoadBalance             float64 `json:"mpiLoadBalance"`
	MPILoadBalanceIn           float64 `json:"mpiLoadBalanceIn"`
	MPILoadBalanceOut          float64 `json:"mpiLoadBalanceOut"`
	OMPParallelEfficiency      float64 `json:"ompParallelEfficiency"`
	OMPLoadBalance             float64 `json:"ompLoadBalance"`
	OMPSchedulingEfficiency    float64 `json:"ompSchedulingEfficiency"`
	OMPSerializationEfficiency float64 `json:"ompSerializationEfficiency"`
}

type nodeProcessJSON struct {
	ID         int   `json:"id"`
	UsefulTime int64 `json:"usefulTime"`
	MPITime    int64 `json:"mpiTime"`
}

type nodeTimesJSON struct {
	UsefulTime int64 `json:"usefulTime"`
	MPITime    int64 `json:"mpiTime"`
}

type nodeJSON struct {
	ID      int               `json:"id"`
	Process []nodeProcessJSON `json:"process"`
	NodeAvg nodeTimesJSON     `json:"nodeAvg"`
	NodeMax nodeTimesJSON     `json:"nodeMax"`
}

type processEntryJSON struct {
	Rank                 int     `json:"rank"`
	PID                  int     `json:"pid"`
	Hostname             string  `json:"hostname"`
	CPUSet               string  `json:"cpuset"`
	NumCPUs              int     `json:"numCpus"`
	AvgCPUs              float64 `json:"avgCpus"`
	NumMeasurements      int64   `json:"numMeasurements"`
	NumMPICalls          int64   `json:"numMpiCalls"`
	NumOMPParallels      int64   `json:"numOmpParallels"`
	NumOMPTasks          int64   `json:"numOmpTasks"`
	ElapsedTime          int64   `json:"elapsedTime"`
	UsefulTime           int64   `json:"usefulTime"`
	MPITime              int64   `json:"mpiTime"`
	OMPLoadImbalanceTime int64   `json:"ompLoadImbalanceTime"`
	OMPSchedulingTime    int64   `json:"ompSchedulingTime"`
	OMPSerializationTime int64   `json:"ompSerializationTime"`
}

type regionJSON struct {
	Name    string             `json:"name"`
	Process []processEntryJSON `json:"process"`
}

type documentJSON struct {
	PopMetrics map[string]popJSON `json:"popMetrics,omitempty"`
	Node       []nodeJSON         `json:"node,omitempty"`
	Region     []regionJSON       `json:"region,omitempty"`
}

func toDocumentJSON(doc Document) documentJSON {
	var out documentJSON

	if len(doc.Pop) > 0 {
		out.PopMetrics = make(map[string]popJSON, len(doc.Pop))
		for _, p := range doc.Pop {
			out.PopMetrics[p.Name] = popJSON{
				NumCPUs:                    p.NumCPUs,
				NumMPIRanks:                p.NumMPIRanks,
				NumNodes:                   p.NumNodes,
				AvgCPUs:                    p.AvgCPUs,
				NumMeasurements:            p.NumMeasurements,
				NumMPICalls:                p.NumMPICalls,
				NumOMPParallels:            p.NumOMPParallels,
				NumOMPTasks:                p.NumOMPTasks,
				ElapsedTime:                p.ElapsedTime,
				UsefulTime:                 p.UsefulTime,
				MPITime:                    p.MPITime,
				OMPLoadImbalanceTime:       p.OMPLoadImbalanceTime,
				OMPSchedulingTime:          p.OMPSchedulingTime,
				OMPSerializationTime:       p.OMPSerializationTime,
				ParallelEfficiency:         p.ParallelEfficiency,
				MPIParallelEfficiency:      p.MPIParallelEfficiency,
				MPICommunicationEfficiency: p.MPICommunicationEfficiency,
				MPILoadBalance:             p.MPILoadBalance,
				MPILoadBalanceIn:           p.MPILoadBalanceIn,
				MPILoadBalanceOut:          p.MPILoadBalanceOut,
				OMPParallelEfficiency:      p.OMPParallelEfficiency,
				OMPLoadBalance:             p.OMPLoadBalance,
				OMPSchedulingEfficiency:    p.OMPSchedulingEfficiency,
				OMPSerializationEfficiency: p.OMPSerializationEfficiency,
			}
		}
	}

	for _, n := range doc.Node {
		nj := nodeJSON{
			ID:      n.NodeID,
			Process: make([]nodeProcessJSON, len(n.Processes)),
			NodeAvg: nodeTimesJSON{UsefulTime: n.AvgUsefulTime, MPITime: n.AvgMPITime},
			NodeMax: nodeTimesJSON{UsefulTime: n.MaxUsefulTime, MPITime: n.MaxMPITime},
		}
		for i, p := range n.Processes {
			nj.Process[i] = nodeProcessJSON{ID: p.PID, UsefulTime: p.UsefulTime, MPITime: p.MPITime}
		}
		out.Node = append(out.Node, nj)
	}

	regionsByName := make(map[string]int)
	for _, pr := range doc.Process {
		idx, ok := regionsByName[pr.Region]
		if !ok {
			out.Region = append(out.Region, regionJSON{Name: pr.Region})
			idx = len(out.Region) - 1
			regionsByName[pr.Region] = idx
		}
		m := pr.Metrics
		out.Region[idx].Process = append(out.Region[idx].Process, processEntryJSON{
			Rank:                 pr.Rank,
			PID:                  pr.PID,
			Hostname:             pr.Hostname,
			CPUSet:               pr.CPUSet,
			NumCPUs:              m.NumCPUs,
			AvgCPUs:              m.AvgCPUs,
			NumMeasurements:      m.NumMeasurements,
			NumMPICalls:          m.NumMPICalls,
			NumOMPParallels:      m.NumOMPParallels,
			NumOMPTasks:          m.NumOMPTasks,
			ElapsedTime:          m.ElapsedTime,
			UsefulTime:           m.UsefulTime,
			MPITime:              m.MPITime,
			OMPLoadImbalanceTime: m.OMPLoadImbalanceTime,
			OMPSchedulingTime:    m.OMPSchedulingTime,
			OMPSerializationTime: m.OMPSerializationTime,
		})
	}

	return out
}

// WriteJSON renders doc as one indented JSON object with up to three
// top-level keys (popMetrics, node, region), mirroring the combined
// dictionary talp_output_finalize builds when writing a single JSON file.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toDocumentJSON(doc))
}
