/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package lifecycle

// State is the lifecycle state of the controller. States only move forward.
// State 是控制器的生命周期状态，只能向前推进。
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateRunning
	StateShuttingDown
	StateTerminated
)

// String returns a human-readable representation of the state
// String 返回状态的可读表示
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// StopReason records what asked the controller to stop
// StopReason 记录请求控制器停止的原因
type StopReason int32

const (
	reasonNone StopReason = iota
	ReasonSignal
	ReasonExplicit
	ReasonFault
	ReasonContext
)

func (r StopReason) String() string {
	switch r {
	case ReasonSignal:
		return "signal"
	case ReasonExplicit:
		return "explicit"
	case ReasonFault:
		return "fault"
	case ReasonContext:
		return "context"
	default:
		return "none"
	}
}

// Exit codes handed back to the entry point
// 返回给入口点的退出码
const (
	ExitOK = 0
)
