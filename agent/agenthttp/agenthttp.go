// Package agenthttp provides a read-only HTTP view of an agent's
// configuration and state for debugging and dashboards.
package agenthttp

import (
	"encoding/json"
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/rs/cors"

	"github.com/d11dpool/channel/agent"
)

func New(a *agent.Agent) http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", handleSnapshot(a))
	return cors.Default().Handler(m)
}

func handleSnapshot(a *agent.Agent) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		type agentConfig struct {
			Network   string
			Payer     bool
			Capacity  btcutil.Amount
			Delay     uint32
			RefundKey []byte `json:",omitempty"`
		}
		c := a.Config()
		v := struct {
			Config   agentConfig
			Snapshot agent.Snapshot
		}{
			Config: agentConfig{
				Network:  c.NetParams.Name,
				Payer:    c.Payer,
				Capacity: c.Capacity,
				Delay:    c.Delay,
			},
			Snapshot: a.Snapshot(),
		}
		if c.RefundKey != nil {
			v.Config.RefundKey = c.RefundKey.SerializeCompressed()
		}
		err := enc.Encode(v)
		if err != nil {
			panic(err)
		}
	}
}
