package utils

import "strconv"

func StrToInt(str string, defaultValue int) int {
	result, err := strconv.Atoi(str)
	if err != nil {
		return defaultValue
	}
	return result
}

func StrToBool(str string, defaultValue bool) bool {
	result, err := strconv.ParseBool(str)
	if err != nil {
		return defaultValue
	}
	return result
}
