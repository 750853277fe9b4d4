// Package codec serialises record.NodeRecords to and from JSON, tagging
// every document with a schema and codec version so storage backends can
// refuse to load a document written by an incompatible version of this
// package.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"synaptica/internal/record"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record set schema/codec version mismatch")

// wireConnection and wireNode mirror record.InactiveConnection/NodeRecord
// field-for-field; a separate wire type keeps the in-memory types free of
// json tags.
type wireConnection struct {
	ConnectionOrder *uint32 `json:"connection_order,omitempty"`
	FromNode        int64   `json:"from_node"`
	Weight          float64 `json:"weight"`
}

type wireNodeType struct {
	Kind          string `json:"kind"`
	OutboundCount uint32 `json:"outbound_count,omitempty"`
}

type wireLearning struct {
	Kind string  `json:"kind"`
	Rate float64 `json:"rate,omitempty"`
}

type wireNode struct {
	NodeId   int64                     `json:"node_id"`
	Layer    int32                     `json:"layer"`
	Type     wireNodeType              `json:"type"`
	Inbound  map[string]wireConnection `json:"inbound_connections"`
	Bias     *float64                  `json:"bias,omitempty"`
	Learning wireLearning              `json:"learning_algorithm"`

	ActivationFunctionID *string `json:"activation_function_id,omitempty"`
	SyncFunctionID        *string `json:"sync_function_id,omitempty"`
	OutputHookID          *string `json:"output_hook_id,omitempty"`
	MaximumVectorLength   *uint32 `json:"maximum_vector_length,omitempty"`
}

type wireDocument struct {
	SchemaVersion int        `json:"schema_version"`
	CodecVersion  int        `json:"codec_version"`
	Nodes         []wireNode `json:"nodes"`
}

// Encode serialises a record set to its versioned JSON form.
func Encode(nr record.NodeRecords) ([]byte, error) {
	doc := wireDocument{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
		Nodes:         make([]wireNode, 0, len(nr)),
	}
	for _, id := range nr.Ids() {
		doc.Nodes = append(doc.Nodes, toWireNode(nr[id]))
	}
	return json.Marshal(doc)
}

// Decode parses a versioned JSON document back into a record set,
// rejecting one written by a schema or codec version this package
// doesn't recognise.
func Decode(data []byte) (record.NodeRecords, error) {
	var doc wireDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.SchemaVersion != CurrentSchemaVersion || doc.CodecVersion != CurrentCodecVersion {
		return nil, fmt.Errorf("%w: got schema=%d codec=%d", ErrVersionMismatch, doc.SchemaVersion, doc.CodecVersion)
	}

	nr := make(record.NodeRecords, len(doc.Nodes))
	for _, wn := range doc.Nodes {
		node, err := fromWireNode(wn)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", wn.NodeId, err)
		}
		nr[node.NodeId] = node
	}
	return nr, nil
}

func toWireNode(n *record.NodeRecord) wireNode {
	wn := wireNode{
		NodeId: int64(n.NodeId),
		Layer:  n.Layer,
		Type: wireNodeType{
			Kind:          n.Type.Kind.String(),
			OutboundCount: n.Type.OutboundCount,
		},
		Inbound:               make(map[string]wireConnection, len(n.Inbound)),
		Bias:                  n.Bias,
		Learning:               toWireLearning(n.Learning),
		ActivationFunctionID:  n.ActivationFunctionID,
		SyncFunctionID:        n.SyncFunctionID,
		OutputHookID:          n.OutputHookID,
		MaximumVectorLength:   n.MaximumVectorLength,
	}
	for cid, conn := range n.Inbound {
		wn.Inbound[string(cid)] = wireConnection{
			ConnectionOrder: conn.ConnectionOrder,
			FromNode:        int64(conn.FromNode),
			Weight:          conn.Weight,
		}
	}
	return wn
}

func fromWireNode(wn wireNode) (*record.NodeRecord, error) {
	kind, err := parseKind(wn.Type.Kind)
	if err != nil {
		return nil, err
	}
	learning, err := fromWireLearning(wn.Learning)
	if err != nil {
		return nil, err
	}

	node := &record.NodeRecord{
		NodeId:                record.NodeId(wn.NodeId),
		Layer:                 wn.Layer,
		Type:                  record.NodeType{Kind: kind, OutboundCount: wn.Type.OutboundCount},
		Inbound:               make(map[record.ConnectionId]record.InactiveConnection, len(wn.Inbound)),
		Bias:                  wn.Bias,
		Learning:               learning,
		ActivationFunctionID:  wn.ActivationFunctionID,
		SyncFunctionID:        wn.SyncFunctionID,
		OutputHookID:          wn.OutputHookID,
		MaximumVectorLength:   wn.MaximumVectorLength,
	}
	for cid, conn := range wn.Inbound {
		node.Inbound[record.ConnectionId(cid)] = record.InactiveConnection{
			ConnectionOrder: conn.ConnectionOrder,
			FromNode:        record.NodeId(conn.FromNode),
			Weight:          conn.Weight,
		}
	}
	return node, nil
}

func parseKind(s string) (record.Kind, error) {
	switch s {
	case "neuron":
		return record.KindNeuron, nil
	case "sensor":
		return record.KindSensor, nil
	case "actuator":
		return record.KindActuator, nil
	default:
		return 0, fmt.Errorf("unknown node kind: %q", s)
	}
}

func toWireLearning(l record.LearningAlgorithm) wireLearning {
	switch l.Kind {
	case record.Hebbian:
		return wireLearning{Kind: "hebbian", Rate: l.Rate}
	default:
		return wireLearning{Kind: "none"}
	}
}

func fromWireLearning(w wireLearning) (record.LearningAlgorithm, error) {
	switch w.Kind {
	case "", "none":
		return record.LearningAlgorithm{Kind: record.NoLearning}, nil
	case "hebbian":
		return record.LearningAlgorithm{Kind: record.Hebbian, Rate: w.Rate}, nil
	default:
		return record.LearningAlgorithm{}, fmt.Errorf("unknown learning algorithm: %q", w.Kind)
	}
}
