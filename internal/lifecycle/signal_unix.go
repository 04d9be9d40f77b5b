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

//go:build !windows

package lifecycle

import (
	"os"
	"os/signal"
	"syscall"
)

// SIGINT: Ctrl+C
// SIGTERM: service managers and container runtimes
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// NotifyTermination registers for the POSIX termination signals
// NotifyTermination 注册 POSIX 终止信号
func NotifyTermination() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, terminationSignals...)
	return ch
}

// NotifyReload registers SIGHUP as a configuration reload request
// NotifyReload 将 SIGHUP 注册为配置重载请求
func NotifyReload() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	return ch
}
