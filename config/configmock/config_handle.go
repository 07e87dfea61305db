// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package configmock provides a gomock-based config.ConfigHandle double,
// in the shape mockgen would generate, for tests that need to assert
// exactly which options a stage's ReadSettings reads rather than
// exercising the real MapConfigHandle.
package configmock

import (
	"reflect"

	"go.uber.org/mock/gomock"
)

// ConfigHandle is a mock of config.ConfigHandle.
type ConfigHandle struct {
	ctrl     *gomock.Controller
	recorder *ConfigHandleMockRecorder
}

// ConfigHandleMockRecorder is the recorder for ConfigHandle.
type ConfigHandleMockRecorder struct {
	mock *ConfigHandle
}

// NewConfigHandle returns a new mock ConfigHandle.
func NewConfigHandle(ctrl *gomock.Controller) *ConfigHandle {
	m := &ConfigHandle{ctrl: ctrl}
	m.recorder = &ConfigHandleMockRecorder{m}
	return m
}

// EXPECT returns an object that allows the caller to indicate expected calls.
func (m *ConfigHandle) EXPECT() *ConfigHandleMockRecorder {
	return m.recorder
}

func (m *ConfigHandle) GetString(name string) (string, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetString", name)
	return ret[0].(string), ret[1].(bool)
}

func (mr *ConfigHandleMockRecorder) GetString(name interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetString", reflect.TypeOf((*ConfigHandle)(nil).GetString), name)
}

func (m *ConfigHandle) GetFloat64(name string) (float64, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetFloat64", name)
	err, _ := ret[2].(error)
	return ret[0].(float64), ret[1].(bool), err
}

func (mr *ConfigHandleMockRecorder) GetFloat64(name interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetFloat64", reflect.TypeOf((*ConfigHandle)(nil).GetFloat64), name)
}

func (m *ConfigHandle) GetInt(name string) (int, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetInt", name)
	err, _ := ret[2].(error)
	return ret[0].(int), ret[1].(bool), err
}

func (mr *ConfigHandleMockRecorder) GetInt(name interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetInt", reflect.TypeOf((*ConfigHandle)(nil).GetInt), name)
}

func (m *ConfigHandle) GetUint(name string) (uint, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetUint", name)
	err, _ := ret[2].(error)
	return ret[0].(uint), ret[1].(bool), err
}

func (mr *ConfigHandleMockRecorder) GetUint(name interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetUint", reflect.TypeOf((*ConfigHandle)(nil).GetUint), name)
}

func (m *ConfigHandle) GetBool(name string) (bool, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetBool", name)
	err, _ := ret[2].(error)
	return ret[0].(bool), ret[1].(bool), err
}

func (mr *ConfigHandleMockRecorder) GetBool(name interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetBool", reflect.TypeOf((*ConfigHandle)(nil).GetBool), name)
}

func (m *ConfigHandle) GetStringList(name string) ([]string, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetStringList", name)
	list, _ := ret[0].([]string)
	return list, ret[1].(bool)
}

func (mr *ConfigHandleMockRecorder) GetStringList(name interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetStringList", reflect.TypeOf((*ConfigHandle)(nil).GetStringList), name)
}

func (m *ConfigHandle) GetStageList(name string) ([]string, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetStageList", name)
	list, _ := ret[0].([]string)
	return list, ret[1].(bool)
}

func (mr *ConfigHandleMockRecorder) GetStageList(name interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetStageList", reflect.TypeOf((*ConfigHandle)(nil).GetStageList), name)
}
