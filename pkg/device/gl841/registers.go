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

package gl841

import "jinr.ru/greenlab/go-scan/pkg/regs"

// Declared registers with their power-on values
var Registers = []regs.Reg{
	{Addr: 0x01, Value: 0x00},
	{Addr: 0x02, Value: 0x00},
	{Addr: 0x03, Value: 0x0f},
	{Addr: 0x04, Value: 0x03},
	{Addr: 0x05, Value: 0x00},
	{Addr: 0x06, Value: 0x18},
	{Addr: 0x07, Value: 0x00},
	{Addr: 0x08, Value: 0x00},
	{Addr: 0x09, Value: 0x00},
	{Addr: 0x0a, Value: 0x00},
	// EXPR, EXPG, EXPB
	{Addr: 0x10, Value: 0x2a},
	{Addr: 0x11, Value: 0xf8},
	{Addr: 0x12, Value: 0x2a},
	{Addr: 0x13, Value: 0xf8},
	{Addr: 0x14, Value: 0x2a},
	{Addr: 0x15, Value: 0xf8},
	{Addr: 0x16, Value: 0x20},
	{Addr: 0x17, Value: 0x08},
	{Addr: 0x18, Value: 0x00},
	{Addr: 0x19, Value: 0x2a},
	{Addr: 0x1a, Value: 0x00},
	{Addr: 0x1b, Value: 0x00},
	{Addr: 0x1c, Value: 0x20},
	{Addr: 0x1d, Value: 0x04},
	{Addr: 0x1e, Value: 0x10},
	{Addr: 0x1f, Value: 0x04},
	{Addr: 0x20, Value: 0x02},
	{Addr: 0x21, Value: 0x01},
	{Addr: 0x22, Value: 0x01},
	{Addr: 0x23, Value: 0x01},
	{Addr: 0x24, Value: 0x01},
	// LINCNT
	{Addr: 0x25, Value: 0x00},
	{Addr: 0x26, Value: 0x00},
	{Addr: 0x27, Value: 0x00},
	{Addr: 0x29, Value: 0xff},
	{Addr: 0x2a, Value: 0x00},
	{Addr: 0x2b, Value: 0x00},
	// DPISET
	{Addr: 0x2c, Value: 0x02},
	{Addr: 0x2d, Value: 0x58},
	{Addr: 0x2e, Value: 0x80},
	{Addr: 0x2f, Value: 0x80},
	// STRPIXEL, ENDPIXEL
	{Addr: 0x30, Value: 0x00},
	{Addr: 0x31, Value: 0x00},
	{Addr: 0x32, Value: 0x00},
	{Addr: 0x33, Value: 0x00},
	{Addr: 0x34, Value: 0x10},
	// MAXWD
	{Addr: 0x35, Value: 0x00},
	{Addr: 0x36, Value: 0x00},
	{Addr: 0x37, Value: 0x00},
	// LPERIOD
	{Addr: 0x38, Value: 0x2a},
	{Addr: 0x39, Value: 0xf8},
	// FEEDL
	{Addr: 0x3d, Value: 0x00},
	{Addr: 0x3e, Value: 0x00},
	{Addr: 0x3f, Value: 0x00},
	// analog front end offsets and gains
	{Addr: 0x50, Value: 0x80},
	{Addr: 0x51, Value: 0x80},
	{Addr: 0x52, Value: 0x80},
	{Addr: 0x53, Value: 0x00},
	{Addr: 0x54, Value: 0x00},
	{Addr: 0x55, Value: 0x00},
	{Addr: 0x5e, Value: 0x02},
	{Addr: 0x5f, Value: 0x01},
	// Z1MOD, Z2MOD
	{Addr: 0x60, Value: 0x00},
	{Addr: 0x61, Value: 0x00},
	{Addr: 0x62, Value: 0x00},
	{Addr: 0x63, Value: 0x00},
	{Addr: 0x64, Value: 0x00},
	{Addr: 0x65, Value: 0x00},
	{Addr: 0x67, Value: 0x40},
	{Addr: 0x68, Value: 0x40},
	{Addr: 0x69, Value: 0x01},
	{Addr: 0x6a, Value: 0x01},
	{Addr: 0x6b, Value: 0x20},
	{Addr: 0x6c, Value: 0x00},
}

var Layout = regs.Layout{
	regs.FieldStart:          {Addr: 0x01, Width: 1, Mask: 0x01},
	regs.FieldShading:        {Addr: 0x01, Width: 1, Mask: 0x20},
	regs.FieldReverse:        {Addr: 0x02, Width: 1, Mask: 0x04},
	regs.FieldMotorEnable:    {Addr: 0x02, Width: 1, Mask: 0x10},
	regs.FieldLamp:           {Addr: 0x03, Width: 1, Mask: 0x10},
	regs.FieldLineSequential: {Addr: 0x04, Width: 1, Mask: 0x10},
	regs.FieldColor:          {Addr: 0x04, Width: 1, Mask: 0x20},
	regs.FieldDepth16:        {Addr: 0x04, Width: 1, Mask: 0x40},
	regs.FieldExposureRed:    {Addr: 0x10, Width: 2},
	regs.FieldExposureGreen:  {Addr: 0x12, Width: 2},
	regs.FieldExposureBlue:   {Addr: 0x14, Width: 2},
	regs.FieldCkSel:          {Addr: 0x18, Width: 1, Mask: 0x03},
	regs.FieldStepNo:         {Addr: 0x21, Width: 1},
	regs.FieldFwdStep:        {Addr: 0x22, Width: 1},
	regs.FieldFastNo:         {Addr: 0x24, Width: 1},
	regs.FieldLineCount:      {Addr: 0x25, Width: 3, Size: 20},
	regs.FieldDPISet:         {Addr: 0x2c, Width: 2},
	regs.FieldStartPixel:     {Addr: 0x30, Width: 2},
	regs.FieldEndPixel:       {Addr: 0x32, Width: 2},
	regs.FieldWordsPerLine:   {Addr: 0x35, Width: 3, Size: 20},
	regs.FieldExposure:       {Addr: 0x38, Width: 2},
	regs.FieldFeedSteps:      {Addr: 0x3d, Width: 3, Size: 20},
	regs.FieldOffsetRed:      {Addr: 0x50, Width: 1},
	regs.FieldOffsetGreen:    {Addr: 0x51, Width: 1},
	regs.FieldOffsetBlue:     {Addr: 0x52, Width: 1},
	regs.FieldGainRed:        {Addr: 0x53, Width: 1, Mask: 0x3f},
	regs.FieldGainGreen:      {Addr: 0x54, Width: 1, Mask: 0x3f},
	regs.FieldGainBlue:       {Addr: 0x55, Width: 1, Mask: 0x3f},
	regs.FieldZ1Mod:          {Addr: 0x60, Width: 3, Size: 20},
	regs.FieldZ2Mod:          {Addr: 0x63, Width: 3, Size: 20},
	regs.FieldStepType:       {Addr: 0x67, Width: 1, Mask: 0xc0},
}
