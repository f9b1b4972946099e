package rpc

import (
	"context"
	"encoding/json"
	"errors"
)

// ChainInfo is a snapshot parsed from one getblockchaininfo response.
type ChainInfo struct {
	Blocks               uint64  `json:"blocks"`
	Headers              uint64  `json:"headers"`
	VerificationProgress float64 `json:"verification_progress"`
	Chain                string  `json:"chain"`
	InitialBlockDownload bool    `json:"initial_block_download"`
}

// ChainInfo calls getblockchaininfo. Individual missing or malformed
// fields default (zero, empty, or assume-still-downloading) rather than
// failing the whole call.
func (c *Client) ChainInfo(ctx context.Context, auth Auth) (ChainInfo, error) {
	result, err := c.Call(ctx, auth, "getblockchaininfo", nil)
	if err != nil {
		return ChainInfo{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(result, &fields); err != nil {
		return ChainInfo{}, &TransportError{Err: err}
	}

	return ChainInfo{
		Blocks:               rawUint(fields["blocks"], 0),
		Headers:              rawUint(fields["headers"], 0),
		VerificationProgress: rawFloat(fields["verificationprogress"], 0),
		Chain:                rawString(fields["chain"], ""),
		InitialBlockDownload: rawBool(fields["initialblockdownload"], true),
	}, nil
}

// RequestStop sends the stop command. The node's acknowledgement text is
// discarded, so an empty result is not an error here.
func (c *Client) RequestStop(ctx context.Context, auth Auth) error {
	_, err := c.Call(ctx, auth, "stop", nil)
	if errors.Is(err, ErrEmptyResult) {
		return nil
	}
	return err
}

func rawUint(raw json.RawMessage, def uint64) uint64 {
	var v uint64
	if raw == nil || json.Unmarshal(raw, &v) != nil {
		return def
	}
	return v
}

func rawFloat(raw json.RawMessage, def float64) float64 {
	var v float64
	if raw == nil || json.Unmarshal(raw, &v) != nil {
		return def
	}
	return v
}

func rawString(raw json.RawMessage, def string) string {
	var v string
	if raw == nil || json.Unmarshal(raw, &v) != nil {
		return def
	}
	return v
}

func rawBool(raw json.RawMessage, def bool) bool {
	var v bool
	if raw == nil || json.Unmarshal(raw, &v) != nil {
		return def
	}
	return v
}
