package api

import (
	"fmt"
	"net/http"
	"text/tabwriter"

	"tailscale.com/tsweb"
)

// AttachAdminRoutes adds a sensors page and worker counters to the tsweb
// debug index on mux.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.KVFunc("Sensor workers", func() any {
		if s.statuses == nil {
			return 0
		}
		return len(s.statuses.Statuses())
	})

	debug.HandleFunc("sensors", "Per-sensor sampling and trigger state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DEVICE\tSENSOR\tPORT\tRUNNING\tSTATE\tCYCLES\tREADS/CYCLE\tDISCARDED\tMAX DRIFT\tSTA\tLTA\tRECORDINGS\tERROR")
		if s.statuses != nil {
			for _, st := range s.statuses.Statuses() {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%v\t%s\t%d\t%.2f\t%d\t%.4f\t%.4f\t%.4f\t%d\t%s\n",
					st.DeviceID, st.SensorType, st.Sensor.Port, st.Running, st.State,
					st.Stats.Cycles, st.Stats.ReadsPerCycle(), st.Discarded, st.Stats.MaxDrift,
					st.STA, st.LTA, st.Recordings, st.Err)
			}
		}
		tw.Flush()
	})
}
