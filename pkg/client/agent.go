// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"
)

// AgentInfo summarizes a remote agent's card.
type AgentInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Version     string      `json:"version,omitempty"`
	URL         string      `json:"url"`
	Streaming   bool        `json:"streaming"`
	Skills      []SkillInfo `json:"skills,omitempty"`
}

// SkillInfo is one advertised skill.
type SkillInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ProbeAgent resolves the agent card published at agentURL. The relay talks
// to the agent; this only tells the user who is on the other end.
func (c *Client) ProbeAgent(ctx context.Context, agentURL string) (*AgentInfo, error) {
	agentURL = strings.TrimRight(agentURL, "/")
	if agentURL == "" {
		return nil, fmt.Errorf("agent url is required")
	}

	card, err := agentcard.NewResolver(c.stream).Resolve(ctx, agentURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve agent card: %w", err)
	}
	return newAgentInfo(card, agentURL), nil
}

func newAgentInfo(card *a2a.AgentCard, fallbackURL string) *AgentInfo {
	info := &AgentInfo{
		Name:        card.Name,
		Description: card.Description,
		Version:     card.Version,
		URL:         card.URL,
		Streaming:   card.Capabilities.Streaming,
	}
	if info.URL == "" {
		info.URL = fallbackURL
	}
	for _, s := range card.Skills {
		info.Skills = append(info.Skills, SkillInfo{ID: s.ID, Name: s.Name, Description: s.Description})
	}
	return info
}
