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

//go:build windows

package lifecycle

import (
	"os"
	"os/signal"
	"syscall"
)

// The Go runtime delivers Ctrl+C and Ctrl+Break as os.Interrupt, and console
// close, logoff and shutdown events as syscall.SIGTERM.
// Go 运行时将 Ctrl+C 和 Ctrl+Break 转换为 os.Interrupt，将控制台关闭、注销
// 和系统关机事件转换为 syscall.SIGTERM。
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// NotifyTermination registers for console control events
// NotifyTermination 注册控制台控制事件
func NotifyTermination() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, terminationSignals...)
	return ch
}

// NotifyReload returns nil: Windows has no reload notification. Receiving from
// a nil channel blocks forever, so the bridge simply never reloads.
func NotifyReload() chan os.Signal {
	return nil
}
