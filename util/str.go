package util

import "strconv"

func StrToInt64(val string) (int64, error) {
	return strconv.ParseInt(val, 10, 64)
}

func StrToUint(val string) (uint64, error) {
	return strconv.ParseUint(val, 10, 64)
}

func StrToInt(val string) (int, error) {
	return strconv.Atoi(val)
}
