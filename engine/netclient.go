package engine

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"

	"github.com/pkg/errors"
)

// Wire protocol: one JSON object per line, request/response in lockstep.
// Matches the engine's headless server framing.

type engineRequest struct {
	Op      string   `json:"op"`
	Slot    *int     `json:"slot,omitempty"`
	Action  *Action  `json:"action,omitempty"`
	Actions []Action `json:"actions,omitempty"`
	Config  *Config  `json:"config,omitempty"`
}

type engineResponse struct {
	Observation  []byte    `json:"observation,omitempty"`
	Reward       float64   `json:"reward"`
	Done         bool      `json:"done"`
	Observations [][]byte  `json:"observations,omitempty"`
	Rewards      []float64 `json:"rewards,omitempty"`
	Dones        []bool    `json:"dones,omitempty"`
	NumInstances int       `json:"num_instances,omitempty"`
	Error        string    `json:"error,omitempty"`
}

type netConn struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
}

func dial(address string) (*netConn, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "could not reach engine at %s", address)
	}

	return &netConn{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

// roundtrip serializes request/response pairs; the engine answers in
// order, one line per request.
func (c *netConn) roundtrip(req engineRequest) (engineResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res engineResponse

	payload, err := json.Marshal(req)
	if err != nil {
		return res, errors.Wrap(err, "could not marshal engine request")
	}

	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		return res, errors.Wrapf(err, "could not send %s to engine", req.Op)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return res, errors.Wrapf(err, "engine connection lost during %s", req.Op)
	}

	if err := json.Unmarshal(line, &res); err != nil {
		return res, errors.Wrapf(err, "could not decode engine response to %s", req.Op)
	}

	if res.Error != "" {
		return res, errors.Errorf("engine refused %s: %s", req.Op, res.Error)
	}

	return res, nil
}

func (c *netConn) configure(cfg Config) error {
	_, err := c.roundtrip(engineRequest{Op: "configure", Config: &cfg})
	return err
}

func (c *netConn) Close() error {
	return c.conn.Close()
}

func checkObservation(raw []byte) (Observation, error) {
	obs := Observation(raw)
	if !obs.IsWellFormed() {
		return nil, errors.Errorf("engine sent malformed observation: %d bytes, want %d", len(raw), ObsByteSize)
	}
	return obs, nil
}

// NetInstance is a single-environment client speaking the line protocol.
type NetInstance struct {
	*netConn
}

func DialInstance(address string, cfg Config) (*NetInstance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := dial(address)
	if err != nil {
		return nil, err
	}

	if err := conn.configure(cfg); err != nil {
		conn.Close()
		return nil, err
	}

	return &NetInstance{netConn: conn}, nil
}

func (c *NetInstance) Reset() (Observation, error) {
	res, err := c.roundtrip(engineRequest{Op: "reset"})
	if err != nil {
		return nil, err
	}

	return checkObservation(res.Observation)
}

func (c *NetInstance) Step(action Action) (Observation, float64, bool, error) {
	res, err := c.roundtrip(engineRequest{Op: "step", Action: &action})
	if err != nil {
		return nil, 0, false, err
	}

	obs, err := checkObservation(res.Observation)
	if err != nil {
		return nil, 0, false, err
	}

	return obs, res.Reward, res.Done, nil
}

// NetMultiInstance is a batched client over one connection; the engine
// steps its slots remotely and answers with index-aligned arrays.
type NetMultiInstance struct {
	*netConn
	numInstances int
}

func DialMultiInstance(address string, cfg Config) (*NetMultiInstance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := dial(address)
	if err != nil {
		return nil, err
	}

	if err := conn.configure(cfg); err != nil {
		conn.Close()
		return nil, err
	}

	res, err := conn.roundtrip(engineRequest{Op: "instance_count"})
	if err != nil {
		conn.Close()
		return nil, err
	}

	if res.NumInstances != cfg.NumInstances {
		conn.Close()
		return nil, errors.Errorf("engine hosts %d instances, configuration wants %d", res.NumInstances, cfg.NumInstances)
	}

	return &NetMultiInstance{netConn: conn, numInstances: res.NumInstances}, nil
}

func (c *NetMultiInstance) InstanceCount() int {
	return c.numInstances
}

func (c *NetMultiInstance) ResetAll() ([]Observation, error) {
	res, err := c.roundtrip(engineRequest{Op: "reset_all"})
	if err != nil {
		return nil, err
	}

	return c.checkBatchObservations(res.Observations)
}

func (c *NetMultiInstance) ResetAt(slot int) (Observation, error) {
	res, err := c.roundtrip(engineRequest{Op: "reset_at", Slot: &slot})
	if err != nil {
		return nil, err
	}

	return checkObservation(res.Observation)
}

func (c *NetMultiInstance) StepAll(actions []Action) ([]Observation, []float64, []bool, error) {
	res, err := c.roundtrip(engineRequest{Op: "step_all", Actions: actions})
	if err != nil {
		return nil, nil, nil, err
	}

	observations, err := c.checkBatchObservations(res.Observations)
	if err != nil {
		return nil, nil, nil, err
	}

	if len(res.Rewards) != c.numInstances || len(res.Dones) != c.numInstances {
		return nil, nil, nil, errors.Errorf(
			"engine sent misaligned batch: %d rewards, %d dones, want %d of each",
			len(res.Rewards), len(res.Dones), c.numInstances,
		)
	}

	return observations, res.Rewards, res.Dones, nil
}

func (c *NetMultiInstance) checkBatchObservations(raw [][]byte) ([]Observation, error) {
	if len(raw) != c.numInstances {
		return nil, errors.Errorf("engine sent %d observations, want %d", len(raw), c.numInstances)
	}

	observations := make([]Observation, len(raw))
	for i, rawobs := range raw {
		obs, err := checkObservation(rawobs)
		if err != nil {
			return nil, errors.Wrapf(err, "slot %d", i)
		}
		observations[i] = obs
	}

	return observations, nil
}
