/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package config

import "time"

const (
	ConfigDir  = ".go-scan"
	ConfigFile = "config"
	DBFile     = "state.db"

	DefaultModel     = "canon-lide-35"
	DefaultTransport = TransportUSB
	DefaultVendorID  = 0x04a9
	DefaultProductID = 0x2213

	DefaultApiAddress = "127.0.0.1"
	DefaultApiPort    = 8003
	DefaultLogLevel   = "info"

	DefaultParkAttempts   = 400
	DefaultParkInterval   = 100 * time.Millisecond
	DefaultLoadAttempts   = 300
	DefaultLoadInterval   = 200 * time.Millisecond
	DefaultEjectAttempts  = 150
	DefaultEjectInterval  = 200 * time.Millisecond
	DefaultMotorAttempts  = 300
	DefaultMotorInterval  = 100 * time.Millisecond
	DefaultSensorAttempts = 50
	DefaultSensorInterval = 100 * time.Millisecond

	DefaultBlackLow         = 8
	DefaultBlackHigh        = 22
	DefaultWhiteLow         = 234
	DefaultWhiteHigh        = 252
	DefaultOffsetIterations = 10
	DefaultTotalIterations  = 100
	DefaultStepRatio        = 0.5
	DefaultMaxStep          = 32
	DefaultExposureStep     = 100
	DefaultShadingLines     = 16
	DefaultCacheExpiration  = 60 * time.Minute
)

const (
	TransportUSB = "usb"
	TransportSim = "sim"
)
