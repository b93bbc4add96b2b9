package main

import "strings"

type listFlag struct {
	sep    string
	values []string
}

func commaListFlag(values ...string) *listFlag {
	return &listFlag{sep: ",", values: values}
}

func (lf *listFlag) Set(value string) error {
	if lf == nil {
		return nil
	}

	lf.values = strings.Split(value, lf.sep)
	return nil
}

func (lf listFlag) String() string { return strings.Join(lf.values, lf.sep) }
