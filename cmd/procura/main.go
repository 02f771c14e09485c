// Command procura researches procurement questions: vendor searches,
// market intelligence, product images and compliance checks.
package main

func main() {
	Execute()
}
